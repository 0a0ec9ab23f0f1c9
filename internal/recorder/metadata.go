package recorder

import "strings"

// NoFileType is stored when an object key has no extension.
const NoFileType = "None"

// Metadata is what gets extracted from an upload event.
type Metadata struct {
	Bucket    string
	Key       string
	FileType  string
	SizeBytes int64
}

// ExtractMetadata reads the first record of event. It has no side effects.
func ExtractMetadata(event UploadEvent) (Metadata, error) {
	if len(event.Records) == 0 {
		return Metadata{}, malformed("Records", "empty")
	}

	r := event.Records[0]
	switch {
	case r.Bucket == "":
		return Metadata{}, malformed("Records[0].s3.bucket.name", "empty")
	case r.Key == "":
		return Metadata{}, malformed("Records[0].s3.object.key", "empty")
	case r.Size < 0:
		return Metadata{}, malformed("Records[0].s3.object.size", "negative")
	}

	return Metadata{
		Bucket:    r.Bucket,
		Key:       r.Key,
		FileType:  FileType(r.Key),
		SizeBytes: r.Size,
	}, nil
}

// FileType returns the extension of the last path segment of key without
// the dot, or NoFileType. A dot in first or last position of the segment
// does not start an extension.
func FileType(key string) string {
	name := strings.TrimRight(key, "/")
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}

	dot := strings.LastIndexByte(name, '.')
	if dot <= 0 || dot == len(name)-1 {
		return NoFileType
	}
	return name[dot+1:]
}

// KiB converts a byte count to kibibytes.
func KiB(sizeBytes int64) float64 {
	return float64(sizeBytes) / 1024
}

// RecordID is the table key for an object: bucket and key joined by a slash.
func RecordID(bucket, key string) string {
	return bucket + "/" + key
}
