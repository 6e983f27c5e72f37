package documents

import (
	"time"

	"applybro-backend/internal/extract"
)

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	ID                 string              `json:"id"`
	Type               string              `json:"type"`
	DocumentType       string              `json:"documentType"`
	OriginalFilename   string              `json:"originalFilename"`
	MimeType           string              `json:"mimeType"`
	SizeBytes          int64               `json:"sizeBytes"`
	ParsedData         *extract.ParsedData `json:"parsedData,omitempty"`
	ParsingStatus      string              `json:"parsingStatus"`
	ParsingError       string              `json:"parsingError,omitempty"`
	VerificationStatus string              `json:"verificationStatus"`
	AdminNote          string              `json:"adminNote,omitempty"`
	VerifiedAt         *time.Time          `json:"verifiedAt,omitempty"`
	UploadedAt         time.Time           `json:"uploadedAt"`
	ParsedAt           *time.Time          `json:"parsedAt,omitempty"`
}

func toResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		ID:                 doc.ID,
		Type:               doc.Type,
		DocumentType:       doc.DocumentType,
		OriginalFilename:   doc.OriginalFilename,
		MimeType:           doc.MimeType,
		SizeBytes:          doc.SizeBytes,
		ParsedData:         doc.ParsedData,
		ParsingStatus:      doc.ParsingStatus,
		ParsingError:       doc.ParsingError,
		VerificationStatus: doc.VerificationStatus,
		AdminNote:          doc.AdminNote,
		VerifiedAt:         doc.VerifiedAt,
		UploadedAt:         doc.UploadedAt,
		ParsedAt:           doc.ParsedAt,
	}
}

// PendingDocumentResponse is a document in the admin review queue.
type PendingDocumentResponse struct {
	DocumentResponse
	UserID    string `json:"userId"`
	UserName  string `json:"userName,omitempty"`
	UserEmail string `json:"userEmail,omitempty"`
}

func toPendingResponse(p PendingDocument) PendingDocumentResponse {
	return PendingDocumentResponse{
		DocumentResponse: toResponse(p.Document),
		UserID:           p.UserID,
		UserName:         p.OwnerName,
		UserEmail:        p.OwnerEmail,
	}
}
