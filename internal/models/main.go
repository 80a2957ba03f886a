package models

// ModelRegistry lists the gorm models handled by --auto-migrate.
var ModelRegistry = []interface{}{
	&WaitlistEntry{},
}
