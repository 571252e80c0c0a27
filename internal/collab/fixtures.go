package collab

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/bequest/internal/lifecycle"
	"github.com/roach88/bequest/internal/plan"
)

// Fixtures describes a set of reference collaborators in YAML:
//
//	registry:
//	  open: false
//	  members: [alice, dave]
//	oracle:
//	  identity: oracle
//	  key: oracle-secret
//	encryption_key: allocation-secret
//	vault_state: ./vaults.json
//	vaults:
//	  - id: 1
//	    owner: alice
type Fixtures struct {
	Registry      RegistryFixture `yaml:"registry"`
	Oracle        OracleFixture   `yaml:"oracle"`
	EncryptionKey string          `yaml:"encryption_key"`
	VaultState    string          `yaml:"vault_state,omitempty"`
	Vaults        []VaultFixture  `yaml:"vaults"`
}

type RegistryFixture struct {
	Open    bool            `yaml:"open"`
	Members []plan.Identity `yaml:"members"`
}

type OracleFixture struct {
	Identity plan.Identity `yaml:"identity"`
	Key      string        `yaml:"key"`
}

type VaultFixture struct {
	ID    uint64        `yaml:"id"`
	Owner plan.Identity `yaml:"owner,omitempty"`
}

// LoadFixtures reads a fixtures file.
func LoadFixtures(path string) (Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixtures{}, fmt.Errorf("read fixtures: %w", err)
	}
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Fixtures{}, fmt.Errorf("parse fixtures %s: %w", path, err)
	}
	return f, nil
}

// Set is a wired group of reference collaborators.
type Set struct {
	Registry   *Registry
	Sealer     *Sealer
	Vault      *MemoryVault
	Oracle     *HMACOracle
	Dispatcher lifecycle.Dispatcher
}

// Build constructs the collaborators a fixture describes. Claim notices go to
// logger.
func (f Fixtures) Build(logger *slog.Logger) (*Set, error) {
	reg := NewRegistry(f.Registry.Members...)
	if f.Registry.Open {
		reg = NewOpenRegistry()
	}

	sealer, err := NewSealer([]byte(f.EncryptionKey))
	if err != nil {
		return nil, err
	}
	oracle, err := NewHMACOracle(f.Oracle.Identity, []byte(f.Oracle.Key))
	if err != nil {
		return nil, err
	}

	vault := NewMemoryVault()
	if f.VaultState != "" {
		vault, err = OpenMemoryVault(f.VaultState)
		if err != nil {
			return nil, err
		}
	}
	for _, vf := range f.Vaults {
		if err := vault.Provision(vf.ID, vf.Owner); err != nil {
			return nil, fmt.Errorf("provision vault %d: %w", vf.ID, err)
		}
	}

	return &Set{
		Registry:   reg,
		Sealer:     sealer,
		Vault:      vault,
		Oracle:     oracle,
		Dispatcher: LogDispatcher{Logger: logger},
	}, nil
}

// Collaborators adapts the set for lifecycle.New.
func (s *Set) Collaborators() lifecycle.Collaborators {
	return lifecycle.Collaborators{
		Registry:   s.Registry,
		Encryptor:  s.Sealer,
		Vault:      s.Vault,
		Oracle:     s.Oracle,
		Dispatcher: s.Dispatcher,
	}
}
