// Package catalogs loads the static domain catalogs (storage unit
// types, promotion plans, barter service types) from YAML and exposes
// them with content digests so clients can cache by digest.
package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

type Catalogs struct {
	StorageUnits StorageUnitCatalog
	Plans        PlanCatalog
	Services     ServiceCatalog
}

type StorageUnitDef struct {
	ID         string  `yaml:"id" json:"id"`
	Name       string  `yaml:"name" json:"name"`
	RatePerDay int     `yaml:"rate_per_day" json:"rate_per_day"`
	CapacityKg int     `yaml:"capacity_kg" json:"capacity_kg"`
	TargetTemp float64 `yaml:"target_temp" json:"target_temp"`
	TargetRH   float64 `yaml:"target_rh" json:"target_rh"`
}

type StorageUnitCatalog struct {
	ByID   map[string]StorageUnitDef
	Digest string
}

type PlanDef struct {
	ID           string `yaml:"id" json:"id"`
	DurationDays int    `yaml:"duration_days" json:"duration_days"`
	Credits      int    `yaml:"credits" json:"credits"`
	Boost        int    `yaml:"boost" json:"boost"`
}

type PlanCatalog struct {
	ByID   map[string]PlanDef
	Digest string
}

type ServiceDef struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	BaseCredits int    `yaml:"base_credits" json:"base_credits"`
}

type ServiceCatalog struct {
	ByID   map[string]ServiceDef
	Digest string
}

// Load reads the catalog YAML files from configDir. Missing files are
// an error; Default() exists for tests and embedded use.
func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	var units []StorageUnitDef
	if err := readYAML(filepath.Join(configDir, "storage_units.yaml"), &units); err != nil {
		return nil, fmt.Errorf("storage_units: %w", err)
	}
	c.StorageUnits = buildStorageUnits(units)

	var plans []PlanDef
	if err := readYAML(filepath.Join(configDir, "promotion_plans.yaml"), &plans); err != nil {
		return nil, fmt.Errorf("promotion_plans: %w", err)
	}
	c.Plans = buildPlans(plans)

	var services []ServiceDef
	if err := readYAML(filepath.Join(configDir, "barter_services.yaml"), &services); err != nil {
		return nil, fmt.Errorf("barter_services: %w", err)
	}
	c.Services = buildServices(services)

	return &c, nil
}

// Default returns the built-in catalogs, matching configs/ in the
// repository. Tests use it to avoid a file dependency.
func Default() *Catalogs {
	return &Catalogs{
		StorageUnits: buildStorageUnits([]StorageUnitDef{
			{ID: "COLD_ROOM", Name: "Cold Room", RatePerDay: 12, CapacityKg: 2000, TargetTemp: 4.0, TargetRH: 90},
			{ID: "CHILLER", Name: "Mobile Chiller", RatePerDay: 8, CapacityKg: 800, TargetTemp: 2.0, TargetRH: 85},
			{ID: "DRY_SILO", Name: "Dry Silo", RatePerDay: 5, CapacityKg: 5000, TargetTemp: 18.0, TargetRH: 55},
		}),
		Plans: buildPlans([]PlanDef{
			{ID: "WEEKLY", DurationDays: 7, Credits: 50, Boost: 25},
			{ID: "MONTHLY", DurationDays: 30, Credits: 150, Boost: 30},
			{ID: "QUARTERLY", DurationDays: 90, Credits: 350, Boost: 40},
		}),
		Services: buildServices([]ServiceDef{
			{ID: "TRACTOR_PLOWING", Name: "Tractor Plowing", BaseCredits: 150},
			{ID: "DRONE_SPRAY", Name: "Drone Spraying", BaseCredits: 200},
			{ID: "HARVEST_LABOR", Name: "Harvest Labor", BaseCredits: 120},
			{ID: "SOIL_TESTING", Name: "Soil Testing", BaseCredits: 80},
		}),
	}
}

func readYAML(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, v)
}

func buildStorageUnits(defs []StorageUnitDef) StorageUnitCatalog {
	byID := make(map[string]StorageUnitDef, len(defs))
	for _, d := range defs {
		byID[d.ID] = d
	}
	return StorageUnitCatalog{ByID: byID, Digest: digestOf(defs)}
}

func buildPlans(defs []PlanDef) PlanCatalog {
	byID := make(map[string]PlanDef, len(defs))
	for _, d := range defs {
		byID[d.ID] = d
	}
	return PlanCatalog{ByID: byID, Digest: digestOf(defs)}
}

func buildServices(defs []ServiceDef) ServiceCatalog {
	byID := make(map[string]ServiceDef, len(defs))
	for _, d := range defs {
		byID[d.ID] = d
	}
	return ServiceCatalog{ByID: byID, Digest: digestOf(defs)}
}

// digestOf hashes the canonical JSON form (sorted by id) so the digest
// is stable regardless of file ordering.
func digestOf[T any](defs []T) string {
	b, _ := json.Marshal(sortedByJSONID(defs))
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func sortedByJSONID[T any](defs []T) []T {
	out := make([]T, len(defs))
	copy(out, defs)
	sort.Slice(out, func(i, j int) bool {
		bi, _ := json.Marshal(out[i])
		bj, _ := json.Marshal(out[j])
		return string(bi) < string(bj)
	})
	return out
}
