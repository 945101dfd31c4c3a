// Package config loads producechain settings from PRODUCECHAIN_* environment variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"producechain/pkg/domain"
)

// Ledger selects and configures the local ledger backend.
type Ledger struct {
	Driver      string `env:"PRODUCECHAIN_LEDGER_DRIVER" envDefault:"sqlite"`
	SQLitePath  string `env:"PRODUCECHAIN_SQLITE_PATH" envDefault:"producechain.db"`
	PostgresDSN string `env:"PRODUCECHAIN_POSTGRES_DSN"`
}

// Orgs overrides the organisation mapped to each role.
type Orgs struct {
	Originator string `env:"PRODUCECHAIN_ORG_ORIGINATOR" envDefault:"Org1MSP"`
	CustodianA string `env:"PRODUCECHAIN_ORG_CUSTODIAN_A" envDefault:"Org2MSP"`
	CustodianB string `env:"PRODUCECHAIN_ORG_CUSTODIAN_B" envDefault:"Org3MSP"`
	Auditor    string `env:"PRODUCECHAIN_ORG_AUDITOR" envDefault:"Org4MSP"`
}

// Blob selects the provenance export store.
type Blob struct {
	Driver      string `env:"PRODUCECHAIN_BLOB_DRIVER" envDefault:"memory"`
	S3Bucket    string `env:"PRODUCECHAIN_BLOB_S3_BUCKET"`
	S3Region    string `env:"PRODUCECHAIN_BLOB_S3_REGION" envDefault:"us-east-1"`
	S3Endpoint  string `env:"PRODUCECHAIN_BLOB_S3_ENDPOINT"`
	S3PathStyle bool   `env:"PRODUCECHAIN_BLOB_S3_PATH_STYLE"`
}

// Log configures the process logger.
type Log struct {
	Level  string `env:"PRODUCECHAIN_LOG_LEVEL" envDefault:"info"`
	Format string `env:"PRODUCECHAIN_LOG_FORMAT" envDefault:"text"`
}

// Config is the full process configuration.
type Config struct {
	Ledger Ledger
	Orgs   Orgs
	Blob   Blob
	Log    Log
}

// Load parses the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// LoadFrom parses the supplied variables instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// OrgTable validates the configured organisations.
func (o Orgs) OrgTable() (domain.OrgTable, error) {
	return domain.NewOrgTable(map[domain.Role]string{
		domain.RoleOriginator: o.Originator,
		domain.RoleCustodianA: o.CustodianA,
		domain.RoleCustodianB: o.CustodianB,
		domain.RoleAuditor:    o.Auditor,
	})
}
