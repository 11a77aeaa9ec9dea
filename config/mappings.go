package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DefaultUserAgent mimics a desktop browser; the portal serves reduced markup to bots
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Mapping is one raw-value to internal-value pair
type Mapping struct {
	Key   string
	Value string
}

// OrderedMap keeps YAML document order, which is the substring match order
type OrderedMap []Mapping

func (m OrderedMap) Lookup(key string) (string, bool) {
	for _, kv := range m {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

func (m *OrderedMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	out := make(OrderedMap, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var k, v string
		if err := node.Content[i].Decode(&k); err != nil {
			return err
		}
		if err := node.Content[i+1].Decode(&v); err != nil {
			return err
		}
		out = append(out, Mapping{Key: k, Value: v})
	}
	*m = out
	return nil
}

// MappingConfig holds the raw-to-internal lookup tables used by the field mapper
type MappingConfig struct {
	BuildingTypes OrderedMap `yaml:"building_types"`
	RoomTypes     OrderedMap `yaml:"room_types"`
	Structures    OrderedMap `yaml:"structures"`
}

func DefaultMappings() MappingConfig {
	return MappingConfig{
		BuildingTypes: OrderedMap{
			{"マンション", "mansion"},
			{"アパート", "apartment"},
			{"一戸建", "house"},
			{"一戸建て", "house"},
		},
		// longest plans first so "1LDK" is not claimed by "1K"-style keys
		RoomTypes: OrderedMap{
			{"ワンルーム", "one_room"},
			{"1R", "one_room"},
			{"3LDK", "three_ldk"},
			{"3DK", "three_dk"},
			{"3K", "three_k"},
			{"2LDK", "two_ldk"},
			{"2DK", "two_dk"},
			{"2K", "two_k"},
			{"1LDK", "one_ldk"},
			{"1DK", "one_dk"},
			{"1K", "one_k"},
		},
		Structures: OrderedMap{
			{"鉄筋コン", "鉄筋コンクリート造"},
			{"鉄筋コン造", "鉄筋コンクリート造"},
			{"鉄骨鉄筋", "鉄骨鉄筋コンクリート造"},
			{"鉄骨鉄筋造", "鉄骨鉄筋コンクリート造"},
			{"鉄骨", "鉄骨造"},
			{"鉄骨造", "鉄骨造"},
			{"軽量鉄骨", "軽量鉄骨造"},
			{"軽量鉄骨造", "軽量鉄骨造"},
			{"木造", "木造"},
			{"ブロック", "ブロック造"},
		},
	}
}
