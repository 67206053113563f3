// Package transfer runs the agency delivery stage for embedded records.
//
// The handler streams the staged file to the agency FTP endpoint under the
// record's original name and stamps UploadedAt on success. Session pooling,
// liveness probing, and failure classification live in the agency client;
// retry scheduling lives in the pipeline.
package transfer
