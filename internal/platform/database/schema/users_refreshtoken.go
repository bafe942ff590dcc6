// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// UserRefreshTokenTable represents the 'users.refreshtoken' table
type UserRefreshTokenTable struct {
	Table       string
	ID          string
	UserID      string
	TokenHash   string
	UserAgent   string
	IPAddress   string
	DeviceClass string
	IsActive    string
	ExpiresAt   string
	CreatedAt   string
	LastUsedAt  string
	RevokedAt   string
}

// UserRefreshToken is the schema definition for users.refreshtoken
var UserRefreshToken = UserRefreshTokenTable{
	Table:       "users.refreshtoken",
	ID:          "id",
	UserID:      "userid",
	TokenHash:   "tokenhash",
	UserAgent:   "useragent",
	IPAddress:   "ipaddress",
	DeviceClass: "deviceclass",
	IsActive:    "isactive",
	ExpiresAt:   "expiresat",
	CreatedAt:   "createdat",
	LastUsedAt:  "lastusedat",
	RevokedAt:   "revokedat",
}

// Columns returns all standard column names in scan order
func (t UserRefreshTokenTable) Columns() []string {
	return []string{
		t.ID, t.UserID, t.TokenHash, t.UserAgent, t.IPAddress, t.DeviceClass,
		t.IsActive, t.ExpiresAt, t.CreatedAt, t.LastUsedAt, t.RevokedAt,
	}
}

// ColumnList returns [UserRefreshTokenTable.Columns] as a comma separated list
func (t UserRefreshTokenTable) ColumnList() string {
	return join(t.Columns())
}
