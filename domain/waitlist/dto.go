package waitlist

import (
	"github.com/akeren/mehfil-api/internal/models"
)

const RegistrationSuccessMessage = "Successfully joined the waitlist!"

type RegisterRequest struct {
	Email        string `json:"email"`
	PhoneNumber  string `json:"phoneNumber"`
	BusinessName string `json:"businessName,omitempty"`
	UserType     string `json:"userType"`
}

type RegistrationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id"`
}

type Stats struct {
	Vendors int64 `json:"vendors"`
	Couples int64 `json:"couples"`
	Total   int64 `json:"total"`
}

type StatsResponse struct {
	Success bool  `json:"success"`
	Data    Stats `json:"data"`
}

// EntryFilter narrows CountEntries. Empty fields match everything.
type EntryFilter struct {
	UserType string
	Status   string
}

func ToRegistrationResponse(entry *models.WaitlistEntry) *RegistrationResponse {
	if entry == nil {
		return nil
	}
	return &RegistrationResponse{
		Success: true,
		Message: RegistrationSuccessMessage,
		ID:      entry.ID,
	}
}
