package model

import (
	"time"
)

// User type constants stored in the users collection discriminator field.
const (
	UserTypeAdmin               = "admin"
	UserTypeMedicalProfessional = "medical_professional"
	UserTypeStandard            = "standard"
)

// PersonalInfo holds the identity fields shown on a profile.
type PersonalInfo struct {
	FirstName   string `bson:"firstName" json:"first_name"`
	LastName    string `bson:"lastName" json:"last_name"`
	Email       string `bson:"email" json:"email"`
	PhoneNumber string `bson:"phoneNumber,omitempty" json:"phone_number,omitempty"`
}

// ProfessionalInfo holds licensing and practice details.
type ProfessionalInfo struct {
	LicenseNumber       string     `bson:"licenseNumber" json:"license_number"`
	LicenseState        string     `bson:"licenseState,omitempty" json:"license_state,omitempty"`
	LicenseExpiryDate   *time.Time `bson:"licenseExpiryDate,omitempty" json:"license_expiry_date,omitempty"`
	Specialty           string     `bson:"specialty,omitempty" json:"specialty,omitempty"`
	HospitalAffiliation string     `bson:"hospitalAffiliation,omitempty" json:"hospital_affiliation,omitempty"`
	YearsOfExperience   int        `bson:"yearsOfExperience,omitempty" json:"years_of_experience,omitempty"`
}

// VerificationStatus is mutated only by admin actions. Rejection and
// revocation are field updates, never a document removal.
type VerificationStatus struct {
	IsVerified        bool       `bson:"isVerified" json:"is_verified"`
	VerifiedAt        *time.Time `bson:"verifiedAt,omitempty" json:"verified_at,omitempty"`
	VerifiedBy        string     `bson:"verifiedBy,omitempty" json:"verified_by,omitempty"`
	VerificationNotes string     `bson:"verificationNotes,omitempty" json:"verification_notes,omitempty"`
	RejectedAt        *time.Time `bson:"rejectedAt,omitempty" json:"rejected_at,omitempty"`
	RejectedBy        string     `bson:"rejectedBy,omitempty" json:"rejected_by,omitempty"`
	RejectionReason   string     `bson:"rejectionReason,omitempty" json:"rejection_reason,omitempty"`
	RevokedAt         *time.Time `bson:"revokedAt,omitempty" json:"revoked_at,omitempty"`
	RevokedBy         string     `bson:"revokedBy,omitempty" json:"revoked_by,omitempty"`
	RevocationReason  string     `bson:"revocationReason,omitempty" json:"revocation_reason,omitempty"`
}

// Professional is a medical professional's record in the users collection.
// ID and UserID always carry the same value; readers assume the
// denormalization even though the store does not enforce it.
type Professional struct {
	ID                 string             `bson:"_id" json:"id"`
	UserID             string             `bson:"userId" json:"user_id"`
	UserType           string             `bson:"userType" json:"user_type"`
	PersonalInfo       PersonalInfo       `bson:"personalInfo" json:"personal_info"`
	ProfessionalInfo   ProfessionalInfo   `bson:"professionalInfo" json:"professional_info"`
	VerificationStatus VerificationStatus `bson:"verificationStatus" json:"verification_status"`
	CreatedAt          time.Time          `bson:"createdAt" json:"created_at"`
	UpdatedAt          time.Time          `bson:"updatedAt" json:"updated_at"`
}

// FullName joins the personal-info name fields for display and emails.
func (p *Professional) FullName() string {
	if p.PersonalInfo.FirstName == "" {
		return p.PersonalInfo.LastName
	}
	if p.PersonalInfo.LastName == "" {
		return p.PersonalInfo.FirstName
	}
	return p.PersonalInfo.FirstName + " " + p.PersonalInfo.LastName
}

// ProfessionalFilter narrows list queries over the users collection.
type ProfessionalFilter struct {
	IsVerified *bool
}
