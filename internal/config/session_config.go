package config

import "time"

// Role literals that may enter the administrative back office.
var DefaultPrivilegedRoles = []string{"GERENTE", "DESENVOLVEDOR", "ANALISTA DE SISTEMAS"}

type SessionConfig interface {
	GetSessionLifetime() time.Duration
	GetValidationTimeout() time.Duration
	GetSingleSessionPerIdentity() bool
	GetSessionPurgeInterval() time.Duration
	GetSessionRetention() time.Duration
	GetPrivilegedRoles() []string
}

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetSessionLifetime() time.Duration {
	return GetEnvDuration("SESSION_LIFETIME", 24*time.Hour)
}

func (Session) GetValidationTimeout() time.Duration {
	return GetEnvDuration("VALIDATION_TIMEOUT", 5*time.Second)
}

func (Session) GetSingleSessionPerIdentity() bool {
	return GetEnvBool("SINGLE_SESSION_PER_IDENTITY", false)
}

func (Session) GetSessionPurgeInterval() time.Duration {
	return GetEnvDuration("SESSION_PURGE_INTERVAL", time.Hour)
}

// GetSessionRetention is how long expired rows are kept before purging
func (Session) GetSessionRetention() time.Duration {
	return GetEnvDuration("SESSION_RETENTION", 30*24*time.Hour)
}

func (Session) GetPrivilegedRoles() []string {
	return GetEnvList("PRIVILEGED_ROLES", DefaultPrivilegedRoles)
}
