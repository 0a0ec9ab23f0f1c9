package recorder

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// UploadEvent is the validated form of an object-created notification.
// Only the first record is consumed.
type UploadEvent struct {
	Records []UploadRecord
}

// UploadRecord identifies one uploaded object.
type UploadRecord struct {
	Bucket string
	Key    string
	Size   int64
}

// notification mirrors the S3 event schema shared by S3, MinIO webhooks and
// MinIO Kafka targets. Pointers distinguish absent fields from zero values.
type notification struct {
	Records *[]notificationRecord `json:"Records"`
}

type notificationRecord struct {
	S3 *struct {
		Bucket *struct {
			Name *string `json:"name"`
		} `json:"bucket"`
		Object *struct {
			Key  *string `json:"key"`
			Size *int64  `json:"size"`
		} `json:"object"`
	} `json:"s3"`
}

// ParseEvent decodes a raw notification payload. Only the first record has
// to carry every field; later records missing a field are dropped.
func ParseEvent(payload []byte) (UploadEvent, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return UploadEvent{}, malformed("", "empty payload")
	}

	var n notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return UploadEvent{}, malformed("", fmt.Sprintf("decode notification: %v", err))
	}
	if n.Records == nil {
		return UploadEvent{}, malformed("Records", "missing")
	}
	if len(*n.Records) == 0 {
		return UploadEvent{}, malformed("Records", "empty")
	}

	event := UploadEvent{Records: make([]UploadRecord, 0, len(*n.Records))}
	for i, r := range *n.Records {
		rec, err := r.toUploadRecord()
		if err != nil {
			if i == 0 {
				return UploadEvent{}, err
			}
			continue
		}
		event.Records = append(event.Records, rec)
	}
	return event, nil
}

func (r notificationRecord) toUploadRecord() (UploadRecord, error) {
	switch {
	case r.S3 == nil:
		return UploadRecord{}, malformed("Records[0].s3", "missing")
	case r.S3.Bucket == nil || r.S3.Bucket.Name == nil:
		return UploadRecord{}, malformed("Records[0].s3.bucket.name", "missing")
	case r.S3.Object == nil:
		return UploadRecord{}, malformed("Records[0].s3.object", "missing")
	case r.S3.Object.Key == nil:
		return UploadRecord{}, malformed("Records[0].s3.object.key", "missing")
	case r.S3.Object.Size == nil:
		return UploadRecord{}, malformed("Records[0].s3.object.size", "missing")
	}

	return UploadRecord{
		Bucket: *r.S3.Bucket.Name,
		Key:    *r.S3.Object.Key,
		Size:   *r.S3.Object.Size,
	}, nil
}
