package models

// Role is free text. Only RoleAdmin grants privileges.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"

	MaxRoleLength = 50
)
