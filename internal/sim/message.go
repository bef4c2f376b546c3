package sim

import (
	"fmt"

	"github.com/platform43/firerig/pkg/core"
)

// UpdateMessage is the wire form of an Update: a kind tag plus the fields that kind uses.
type UpdateMessage struct {
	Kind      string         `json:"kind" msgpack:"kind"`
	Color     string         `json:"color,omitempty" msgpack:"color,omitempty"`
	Length    float64        `json:"length,omitempty" msgpack:"length,omitempty"`
	DX        float64        `json:"dx,omitempty" msgpack:"dx,omitempty"`
	DY        float64        `json:"dy,omitempty" msgpack:"dy,omitempty"`
	Strength  int            `json:"strength,omitempty" msgpack:"strength,omitempty"`
	Count     int            `json:"count,omitempty" msgpack:"count,omitempty"`
	WheelType core.WheelType `json:"wheelType,omitempty" msgpack:"wheelType,omitempty"`
	CabStyle  core.CabStyle  `json:"cabStyle,omitempty" msgpack:"cabStyle,omitempty"`
}

// ToUpdate converts the message into its Update variant.
func (m UpdateMessage) ToUpdate() (Update, error) {
	switch m.Kind {
	case ColorChanged{}.Kind():
		return ColorChanged{Color: m.Color}, nil
	case LadderLengthChanged{}.Kind():
		return LadderLengthChanged{Length: m.Length}, nil
	case LadderToggled{}.Kind():
		return LadderToggled{}, nil
	case SirenToggled{}.Kind():
		return SirenToggled{}, nil
	case AimChanged{}.Kind():
		return AimChanged{DX: m.DX, DY: m.DY}, nil
	case FireStrengthChanged{}.Kind():
		return FireStrengthChanged{Strength: m.Strength}, nil
	case IncidentReset{}.Kind():
		return IncidentReset{}, nil
	case WheelsChanged{}.Kind():
		return WheelsChanged{Count: m.Count, Type: m.WheelType}, nil
	case CabStyleChanged{}.Kind():
		return CabStyleChanged{Style: m.CabStyle}, nil
	case DriveModeToggled{}.Kind():
		return DriveModeToggled{}, nil
	default:
		return nil, fmt.Errorf("unknown update kind %q", m.Kind)
	}
}
