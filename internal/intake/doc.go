// Package intake admits images into the pipeline.
//
// A submission is validated in full before anything is staged: every source
// must exist, carry a supported image extension, and keep its hint under the
// configured bound. Accepted files are copied into the batch's staging
// directory under the workspace root and one pending record is created per
// copy. The original submission paths are never touched again; the pipeline
// owns only the staged copies.
package intake
