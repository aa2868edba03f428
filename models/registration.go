package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RegistrationStatus est l'état d'une inscription dans le workflow d'approbation
type RegistrationStatus string

const (
	StatusPending  RegistrationStatus = "PENDING"
	StatusApproved RegistrationStatus = "APPROVED"
	StatusRejected RegistrationStatus = "REJECTED"
)

// IsTerminal indique qu'aucune transition n'est possible depuis cet état
func (s RegistrationStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// IsDecision indique un statut qu'un admin peut appliquer
func (s RegistrationStatus) IsDecision() bool {
	return s.IsTerminal()
}

// FamilyMember représente une personne accompagnant l'ancien élève
type FamilyMember struct {
	Name     string `json:"name" bson:"name"`
	Relation string `json:"relation" bson:"relation"`
}

// StatusChange trace une décision admin
type StatusChange struct {
	From  RegistrationStatus `json:"from,omitempty" bson:"from,omitempty"`
	To    RegistrationStatus `json:"to" bson:"to"`
	Actor string             `json:"actor" bson:"actor"`
	Note  string             `json:"note,omitempty" bson:"note,omitempty"`
	At    time.Time          `json:"at" bson:"at"`
}

// Registration représente l'inscription d'un ancien élève au jubilé
type Registration struct {
	ID                primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	SubjectID         string             `json:"oauthUid" bson:"oauth_uid"`
	Email             string             `json:"email" bson:"email"`
	Name              string             `json:"name" bson:"name"`
	Batch             string             `json:"batch" bson:"batch"`
	Contact           string             `json:"contact" bson:"contact"`
	LinkedIn          string             `json:"linkedin,omitempty" bson:"linkedin,omitempty"`
	ComingWithFamily  bool               `json:"comingWithFamily" bson:"coming_with_family"`
	FamilyMembers     []FamilyMember     `json:"familyMembers" bson:"family_members"`
	Amount            int64              `json:"amount" bson:"amount"`
	ReceiptURL        string             `json:"receiptUrl" bson:"receipt_url"`
	ReceiptExternalID string             `json:"-" bson:"receipt_public_id"` // handle Cloudinary, jamais exposé
	Status            RegistrationStatus `json:"status" bson:"status"`
	StatusHistory     []StatusChange     `json:"statusHistory,omitempty" bson:"status_history"`
	ReviewedBy        string             `json:"reviewedBy,omitempty" bson:"reviewed_by,omitempty"`
	ReviewedAt        *time.Time         `json:"reviewedAt,omitempty" bson:"reviewed_at,omitempty"`
	CreatedAt         time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt         time.Time          `json:"updatedAt" bson:"updated_at"`
}

// Attendees retourne le nombre de personnes attendues pour cette inscription
func (r *Registration) Attendees() int {
	return 1 + len(r.FamilyMembers)
}

// RegistrationFilter filtre la liste admin
type RegistrationFilter struct {
	Status RegistrationStatus
}

// UpdateStatusRequest représente la décision d'un admin
type UpdateStatusRequest struct {
	Status RegistrationStatus `json:"status"`
	Note   string             `json:"note,omitempty"`
}

// StatusCount agrège les inscriptions d'un statut
type StatusCount struct {
	Status    RegistrationStatus `json:"status" bson:"_id"`
	Count     int                `json:"count" bson:"count"`
	Attendees int                `json:"attendees" bson:"attendees"`
	Amount    int64              `json:"amount" bson:"amount"`
}

// RegistrationStats résume les inscriptions pour le tableau de bord admin
type RegistrationStats struct {
	Total          int           `json:"total"`
	Pending        int           `json:"pending"`
	Approved       int           `json:"approved"`
	Rejected       int           `json:"rejected"`
	TotalAttendees int           `json:"totalAttendees"`
	ExpectedAmount int64         `json:"expectedAmount"`
	ApprovedAmount int64         `json:"approvedAmount"`
	ByStatus       []StatusCount `json:"byStatus"`
}
