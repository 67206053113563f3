// Package exiftool wraps the exiftool binary for metadata embedding.
//
// Embed never touches the original file in place. The tags are written into a
// temp copy created beside the original, exiftool must print its
// "1 image files updated" confirmation, and only then does the copy rename
// over the original. A failure at any point removes the copy and leaves the
// original byte-identical, so a crashed or rejected embed is always safe to
// retry from the staged file.
//
// The tag set covers the baseline tags plus the IPTC and XMP mirrors stock
// agencies index: Title, Description, Keywords, Category,
// IPTC:Caption-Abstract, IPTC:Keywords, XMP:Title, XMP:Description, and
// XMP:Subject. List-valued tags are passed once per keyword.
//
// # Failure Classification
//
// Errors are returned as *Error with a Kind:
//
//   - tool_unavailable: the binary is missing or cannot be started.
//   - unsupported_format: exiftool does not recognize or cannot write the file.
//   - write_failed: everything else, including deadline overruns.
//
// All kinds are permanent. Subprocess execution goes through the Executor
// interface so tests can substitute canned outputs.
package exiftool
