package device

import (
	"context"
	"net/url"
	"strings"
)

const (
	playersPath = "players"

	// DefaultLanguage is sent on Create when no language was set.
	DefaultLanguage = "pt"
	// DefaultDeviceType is sent on Create when no device type was set.
	DefaultDeviceType = Android
)

// Builder accumulates one player record for a single application.
//
// Setters mutate the builder and return it for chaining. Submissions read a
// copy of the accumulated record, so a builder can be submitted repeatedly.
// A Builder is not safe for concurrent use.
type Builder struct {
	appID  string
	client APIClient
	record Record
}

// NewBuilder binds a builder to appID and client. The application ID cannot
// be changed afterwards.
func NewBuilder(appID string, client APIClient) (*Builder, error) {
	if strings.TrimSpace(appID) == "" {
		return nil, &ConfigurationError{Reason: "application id is required"}
	}
	if client == nil {
		return nil, &ConfigurationError{Reason: "api client is required"}
	}
	return &Builder{appID: appID, client: client}, nil
}

// AppID returns the bound application ID.
func (b *Builder) AppID() string {
	return b.appID
}

// Record returns a copy of the accumulated record.
func (b *Builder) Record() Record {
	return b.record.Clone()
}

func (b *Builder) SetIdentifier(id string) *Builder {
	b.record.Identifier = id
	return b
}

func (b *Builder) SetLanguage(lang string) *Builder {
	b.record.Language = lang
	return b
}

func (b *Builder) SetDeviceType(t DeviceType) *Builder {
	b.record.DeviceType = &t
	return b
}

func (b *Builder) SetDeviceModel(model string) *Builder {
	b.record.DeviceModel = model
	return b
}

func (b *Builder) SetDeviceOS(os string) *Builder {
	b.record.DeviceOS = os
	return b
}

func (b *Builder) SetLatitude(lat float64) *Builder {
	b.record.Lat = &lat
	return b
}

func (b *Builder) SetLongitude(long float64) *Builder {
	b.record.Long = &long
	return b
}

func (b *Builder) SetExternalUserID(id string) *Builder {
	b.record.ExternalUserID = id
	return b
}

// AddTag sets one tag, keeping any tags added before.
func (b *Builder) AddTag(name, value string) *Builder {
	if b.record.Tags == nil {
		b.record.Tags = make(map[string]string)
	}
	b.record.Tags[name] = value
	return b
}

// Create registers a new player. A non-nil override replaces the accumulated
// record for this call only.
//
// The identifier is required. Language falls back to DefaultLanguage and
// device type to DefaultDeviceType.
func (b *Builder) Create(ctx context.Context, override *Record) (Result, error) {
	p := b.payload(override)

	if strings.TrimSpace(p.Identifier) == "" {
		return nil, &ValidationError{Field: "identifier", Reason: "required"}
	}
	if strings.TrimSpace(p.Language) == "" {
		p.Language = DefaultLanguage
	}
	if p.DeviceType == nil {
		t := DefaultDeviceType
		p.DeviceType = &t
	}

	return b.client.Post(ctx, playersPath, p)
}

// Update modifies the player deviceID. Only the fields present are sent; no
// defaults are applied.
func (b *Builder) Update(ctx context.Context, deviceID string, override *Record) (Result, error) {
	path, err := playerPath(deviceID)
	if err != nil {
		return nil, err
	}
	return b.client.Put(ctx, path, b.payload(override))
}

// Get fetches the player deviceID.
func (b *Builder) Get(ctx context.Context, deviceID string) (Result, error) {
	path, err := playerPath(deviceID)
	if err != nil {
		return nil, err
	}
	return b.client.Get(ctx, path, url.Values{"app_id": {b.appID}})
}

func (b *Builder) payload(override *Record) *Payload {
	var rec Record
	if override != nil {
		rec = override.Clone()
	} else {
		rec = b.record.Clone()
	}
	return &Payload{AppID: b.appID, Record: rec}
}

// playerPath rejects IDs that would resolve to a collection instead of one
// player. PathEscape keeps "." and "..", which URL resolution collapses.
func playerPath(deviceID string) (string, error) {
	if strings.TrimSpace(deviceID) == "" {
		return "", &ValidationError{Field: "device_id", Reason: "required"}
	}
	if deviceID == "." || deviceID == ".." {
		return "", &ValidationError{Field: "device_id", Reason: "must not be a dot segment"}
	}
	return playersPath + "/" + url.PathEscape(deviceID), nil
}
