package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DistrictConfig is one (district count, winners per district) pair.
//
// Two input forms are accepted and neither is preferred:
//
//	{"num_districts": 5, "winners": 2}
//	{"5": 2}
type DistrictConfig struct {
	NumDistricts int `json:"num_districts" yaml:"num_districts"`
	Winners      int `json:"winners" yaml:"winners"`
}

// TotalSeats is the number of seats elected across the whole plan.
func (d DistrictConfig) TotalSeats() int { return d.NumDistricts * d.Winners }

// ElectionMethod names the tabulation rule used for this configuration.
func (d DistrictConfig) ElectionMethod() string {
	if d.Winners == 1 {
		return "Plurality"
	}
	return "STV"
}

func (d DistrictConfig) String() string {
	return fmt.Sprintf("%dx%d", d.NumDistricts, d.Winners)
}

// UnmarshalJSON accepts both district configuration forms.
func (d *DistrictConfig) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: district_configs entry must be an object: %v", ErrInvalid, err)
	}
	entries := make(map[string]string, len(raw))
	for k, v := range raw {
		entries[k] = strings.TrimSpace(string(v))
	}
	return d.assign(entries)
}

// UnmarshalYAML accepts both district configuration forms.
func (d *DistrictConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: district_configs entry must be a mapping (line %d)", ErrInvalid, node.Line)
	}
	entries := make(map[string]string, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		entries[node.Content[i].Value] = node.Content[i+1].Value
	}
	return d.assign(entries)
}

func (d *DistrictConfig) assign(entries map[string]string) error {
	malformed := fmt.Errorf(`%w: each district_configs entry must be {"num_districts": <int>, "winners": <int>} or {<int>: <int>}, got %v`,
		ErrInvalid, entries)

	if n, ok := entries["num_districts"]; ok {
		w, ok := entries["winners"]
		if !ok || len(entries) != 2 {
			return malformed
		}
		return d.set(n, w, malformed)
	}
	if len(entries) == 1 {
		for n, w := range entries {
			return d.set(n, w, malformed)
		}
	}
	return malformed
}

func (d *DistrictConfig) set(num, winners string, malformed error) error {
	n, err := strconv.Atoi(strings.Trim(num, `"`))
	if err != nil {
		return malformed
	}
	w, err := strconv.Atoi(strings.Trim(winners, `"`))
	if err != nil {
		return malformed
	}
	d.NumDistricts = n
	d.Winners = w
	return nil
}
