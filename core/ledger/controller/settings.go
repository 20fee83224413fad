package controller

import (
	"os"

	"github.com/caarlos0/env/v11"
	"go.dedis.ch/agrireg/core/access"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// Settings is the configuration of the node read from the environment.
type Settings struct {
	// DBFile is the name of the database file in the config folder.
	DBFile string `env:"AGRIREG_DB_FILE" envDefault:"agrireg.db"`

	// Genesis is the path of the genesis file, used when the start command
	// does not provide one.
	Genesis string `env:"AGRIREG_GENESIS"`

	// ProxyAddr is the default address of the HTTP proxy.
	ProxyAddr string `env:"AGRIREG_PROXY_ADDR" envDefault:"127.0.0.1:8080"`
}

// LoadSettings reads the settings from the environment.
func LoadSettings() (Settings, error) {
	var settings Settings

	err := env.Parse(&settings)
	if err != nil {
		return Settings{}, xerrors.Errorf("failed to parse env: %v", err)
	}

	return settings, nil
}

// Genesis is the initial state of the ledger. It is written when the node
// starts for the first time and ignored afterwards.
//
//	max_entries: 10000
//	upload_fee: 100
//	authority_contract: SP1AUTHORITY.contract
//	admins:
//	  - SP0ADMIN
//	authorities:
//	  - SP2ALICE
type Genesis struct {
	MaxEntries        uint64   `yaml:"max_entries"`
	UploadFee         *uint64  `yaml:"upload_fee"`
	AuthorityContract string   `yaml:"authority_contract"`
	Admins            []string `yaml:"admins"`
	Authorities       []string `yaml:"authorities"`
}

// LoadGenesis reads the genesis file. An empty path returns the default
// genesis.
func LoadGenesis(path string) (Genesis, error) {
	var genesis Genesis

	if path == "" {
		return genesis, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return genesis, xerrors.Errorf("failed to read genesis: %v", err)
	}

	err = yaml.UnmarshalStrict(data, &genesis)
	if err != nil {
		return genesis, xerrors.Errorf("failed to decode genesis: %v", err)
	}

	return genesis, nil
}

// AdminPrincipals returns the administrators of the authority contract.
func (g Genesis) AdminPrincipals() []access.Principal {
	return toPrincipals(g.Admins)
}

// AuthorityPrincipals returns the initial verified authorities.
func (g Genesis) AuthorityPrincipals() []access.Principal {
	return toPrincipals(g.Authorities)
}

func toPrincipals(values []string) []access.Principal {
	res := make([]access.Principal, len(values))
	for i, value := range values {
		res[i] = access.Principal(value)
	}

	return res
}
