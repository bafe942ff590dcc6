// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// UserAccountTable represents the 'users.account' table
type UserAccountTable struct {
	Table               string
	ID                  string
	Username            string
	Email               string
	Password            string
	Role                string
	IsActive            string
	FailedLoginAttempts string
	LockedUntil         string
	CreatedAt           string
	UpdatedAt           string
}

// UserAccount is the schema definition for users.account
var UserAccount = UserAccountTable{
	Table:               "users.account",
	ID:                  "id",
	Username:            "username",
	Email:               "email",
	Password:            "passwordhash",
	Role:                "role",
	IsActive:            "isactive",
	FailedLoginAttempts: "failedloginattempts",
	LockedUntil:         "lockeduntil",
	CreatedAt:           "createdat",
	UpdatedAt:           "updatedat",
}

// Columns returns all standard column names in scan order
func (t UserAccountTable) Columns() []string {
	return []string{
		t.ID, t.Username, t.Email, t.Password, t.Role, t.IsActive,
		t.FailedLoginAttempts, t.LockedUntil, t.CreatedAt, t.UpdatedAt,
	}
}

// ColumnList returns [UserAccountTable.Columns] as a comma separated list
func (t UserAccountTable) ColumnList() string {
	return join(t.Columns())
}
