package documents

import (
	"time"

	"applybro-backend/internal/extract"
)

// Academic categories a document can be filed under.
const (
	TypePlusTwo  = "+2"
	TypeBachelor = "bachelor"
	TypeMaster   = "master"
	TypePhD      = "phd"
	TypeIELTS    = "ielts"
	TypeOther    = "other"
)

// Kinds of paper.
const (
	KindTranscript  = "transcript"
	KindCertificate = "certificate"
	KindPassport    = "passport"
	KindIELTS       = "ielts"
	KindOther       = "other"
)

// Parsing lifecycle.
const (
	ParsingPending    = "pending"
	ParsingProcessing = "processing"
	ParsingCompleted  = "completed"
	ParsingFailed     = "failed"
)

const (
	VerificationPending  = "pending"
	VerificationVerified = "verified"
	VerificationRejected = "rejected"
)

var (
	validTypes = map[string]bool{
		TypePlusTwo: true, TypeBachelor: true, TypeMaster: true,
		TypePhD: true, TypeIELTS: true, TypeOther: true,
	}
	validKinds = map[string]bool{
		KindTranscript: true, KindCertificate: true, KindPassport: true,
		KindIELTS: true, KindOther: true,
	}
)

// Document is an uploaded academic document and its parse result.
type Document struct {
	ID                 string
	UserID             string
	Type               string
	DocumentType       string
	OriginalFilename   string
	StorageProvider    string
	StorageKey         string
	MimeType           string
	SizeBytes          int64
	ParsedData         *extract.ParsedData
	ParsingStatus      string
	ParsingError       string
	VerificationStatus string
	// AdminNote is the reviewer's remark from the last verification decision.
	AdminNote          string
	VerifiedAt         *time.Time
	UploadedAt         time.Time
	ParsedAt           *time.Time
}

// Finished reports whether parsing reached a terminal state.
func (d Document) Finished() bool {
	return d.ParsingStatus == ParsingCompleted || d.ParsingStatus == ParsingFailed
}

// Verification is an admin's decision on a document.
type Verification struct {
	Status string
	// Note replaces the stored note only when non-empty.
	Note string
	At   time.Time
}

// ParseOutcome is the terminal state recorded by a parse job.
type ParseOutcome struct {
	Status string
	Data   *extract.ParsedData
	Error  string
	At     time.Time
}
