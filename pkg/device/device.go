// Package device builds and submits OneSignal player (device) records.
//
// A Builder is bound to one application ID and one APIClient. Callers set the
// fields they know, then call Create, Update or Get. Defaults and validation
// are applied at submission time, never in the setters.
package device

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"
)

// DeviceType is the OneSignal device_type wire integer.
type DeviceType int

// The numbering has a gap at 6. Values are part of the remote contract.
const (
	IOS          DeviceType = 0
	Android      DeviceType = 1
	Amazon       DeviceType = 2
	WindowsPhone DeviceType = 3
	ChromeApp    DeviceType = 4
	ChromeWeb    DeviceType = 5
	Safari       DeviceType = 7
	Firefox      DeviceType = 8
	MacOS        DeviceType = 9
)

var deviceTypeNames = map[DeviceType]string{
	IOS:          "IOS",
	Android:      "ANDROID",
	Amazon:       "AMAZON",
	WindowsPhone: "WINDOWSPHONE",
	ChromeApp:    "CHROMEAPP",
	ChromeWeb:    "CHROMEWEB",
	Safari:       "SAFARI",
	Firefox:      "FIREFOX",
	MacOS:        "MACOS",
}

func (t DeviceType) String() string {
	if name, ok := deviceTypeNames[t]; ok {
		return name
	}
	return "DeviceType(" + strconv.Itoa(int(t)) + ")"
}

// Valid reports whether t is one of the known wire values.
func (t DeviceType) Valid() bool {
	_, ok := deviceTypeNames[t]
	return ok
}

// ParseDeviceType accepts a case-insensitive name ("android", "IOS") or the
// wire integer as a string ("1").
func ParseDeviceType(s string) (DeviceType, error) {
	trimmed := strings.TrimSpace(s)
	if n, err := strconv.Atoi(trimmed); err == nil {
		t := DeviceType(n)
		if !t.Valid() {
			return 0, fmt.Errorf("unknown device type %d", n)
		}
		return t, nil
	}
	upper := strings.ToUpper(trimmed)
	for t, name := range deviceTypeNames {
		if name == upper {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown device type %q", s)
}

// UnmarshalJSON accepts the wire integer or a device type name.
func (t *DeviceType) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte(`"`)) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseDeviceType(s)
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("device_type: %w", err)
	}
	if !DeviceType(n).Valid() {
		return fmt.Errorf("unknown device type %d", n)
	}
	*t = DeviceType(n)
	return nil
}

// Record is the caller-visible part of a player record. Pointer fields are
// optional values whose zero is meaningful (IOS is 0, the equator is 0).
type Record struct {
	Identifier     string            `json:"identifier,omitempty"`
	Language       string            `json:"language,omitempty"`
	DeviceType     *DeviceType       `json:"device_type,omitempty"`
	DeviceModel    string            `json:"device_model,omitempty"`
	DeviceOS       string            `json:"device_os,omitempty"`
	Lat            *float64          `json:"lat,omitempty"`
	Long           *float64          `json:"long,omitempty"`
	Tags           map[string]string `json:"tags,omitempty"`
	ExternalUserID string            `json:"external_user_id,omitempty"`
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	out := r
	if r.DeviceType != nil {
		t := *r.DeviceType
		out.DeviceType = &t
	}
	if r.Lat != nil {
		v := *r.Lat
		out.Lat = &v
	}
	if r.Long != nil {
		v := *r.Long
		out.Long = &v
	}
	if r.Tags != nil {
		out.Tags = maps.Clone(r.Tags)
	}
	return out
}

// Payload is the body sent to the players resource: the record plus the
// builder's application ID.
type Payload struct {
	AppID string `json:"app_id"`
	Record
}
