package memory

import (
	"time"

	requestDatamodel "github.com/CodingTam/requesthtml/internal/core/datamodel/request"
	"github.com/CodingTam/requesthtml/internal/core/datamodel/statushistory"
	userDatamodel "github.com/CodingTam/requesthtml/internal/core/datamodel/user"
	"golang.org/x/crypto/bcrypt"
)

const (
	SeedAdminUsername = "admin"
	SeedAdminPassword = "admin123"
	SeedUserUsername  = "alice.johnson"
	SeedUserPassword  = "password123"
	SeedRequestID     = "REQ20240101001"
)

// Seed is the demo data set shared by the fallback store and the seed command.
type Seed struct {
	Users    []userDatamodel.User
	Requests []requestDatamodel.Request
	History  []statushistory.Entry
}

func DefaultSeed(now time.Time) Seed {
	cc := "marketing@company.com"
	description := "Budget for Q1 digital marketing campaign"
	notes := "Initial request submission"

	return Seed{
		Users: []userDatamodel.User{
			{
				ID:        1,
				Name:      "Administrator",
				Username:  SeedAdminUsername,
				Email:     "admin@system.com",
				Password:  hashPassword(SeedAdminPassword),
				Team:      "Administration",
				Status:    userDatamodel.StatusApproved,
				IsAdmin:   true,
				CreatedAt: now,
				UpdatedAt: now,
			},
			{
				ID:          2,
				Name:        "Alice Johnson",
				Username:    SeedUserUsername,
				Email:       "alice@company.com",
				Password:    hashPassword(SeedUserPassword),
				Team:        "Marketing Team",
				Description: "Marketing Specialist",
				Status:      userDatamodel.StatusApproved,
				CreatedAt:   now,
				UpdatedAt:   now,
			},
		},
		Requests: []requestDatamodel.Request{
			{
				ID:              1,
				RequestID:       SeedRequestID,
				RequestorName:   "Alice Johnson",
				RequestorEmail:  "alice@company.com",
				CCEmail:         &cc,
				TeamName:        "Marketing Team",
				CategoryName:    "val1",
				RequestDates:    "2024-01-15,2024-01-16",
				AcctNumber:      "ACC001",
				RequestName:     "Q1 Marketing Campaign",
				Currency:        "USD",
				Amount:          15000,
				Adjustment:      0,
				Description:     &description,
				Status:          "submitted",
				UserID:          2,
				RequestDatetime: now,
				CreatedAt:       now,
				UpdatedAt:       now,
			},
		},
		History: []statushistory.Entry{
			{
				ID:             1,
				RequestID:      SeedRequestID,
				NewStatus:      "submitted",
				ChangedBy:      "Alice Johnson",
				ChangeDatetime: now,
				Notes:          &notes,
			},
		},
	}
}

func hashPassword(password string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		// only reachable for passwords longer than 72 bytes
		return ""
	}
	return string(hash)
}
