package device_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinywideclouds/go-device-service/pkg/device"
)

func TestDeviceType_WireValues(t *testing.T) {
	expected := map[device.DeviceType]int{
		device.IOS:          0,
		device.Android:      1,
		device.Amazon:       2,
		device.WindowsPhone: 3,
		device.ChromeApp:    4,
		device.ChromeWeb:    5,
		device.Safari:       7,
		device.Firefox:      8,
		device.MacOS:        9,
	}
	for dt, wire := range expected {
		assert.Equal(t, wire, int(dt), dt.String())
		assert.True(t, dt.Valid())
	}
	assert.False(t, device.DeviceType(6).Valid())
	assert.Equal(t, "DeviceType(6)", device.DeviceType(6).String())
}

func TestParseDeviceType(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		expected  device.DeviceType
		expectErr bool
	}{
		{name: "Lower case name", input: "android", expected: device.Android},
		{name: "Upper case name", input: "WINDOWSPHONE", expected: device.WindowsPhone},
		{name: "Wire integer", input: "9", expected: device.MacOS},
		{name: "Zero is IOS", input: "0", expected: device.IOS},
		{name: "Gap value rejected", input: "6", expectErr: true},
		{name: "Unknown name rejected", input: "blackberry", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dt, err := device.ParseDeviceType(tc.input)
			if tc.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, dt)
		})
	}
}

func TestRecord_Clone(t *testing.T) {
	lat := 1.5
	dt := device.Safari
	original := device.Record{Lat: &lat, DeviceType: &dt, Tags: map[string]string{"a": "1"}}

	clone := original.Clone()
	*clone.Lat = 9
	*clone.DeviceType = device.Firefox
	clone.Tags["a"] = "2"

	assert.Equal(t, 1.5, *original.Lat)
	assert.Equal(t, device.Safari, *original.DeviceType)
	assert.Equal(t, "1", original.Tags["a"])
}

func TestTransportError(t *testing.T) {
	err := &device.TransportError{
		Method:     "PUT",
		Path:       "players/x",
		StatusCode: 400,
		Errors:     []string{"app_id not found"},
	}

	assert.Equal(t, "onesignal PUT players/x: status 400: app_id not found", err.Error())
	assert.True(t, err.Rejected())
	assert.False(t, (&device.TransportError{StatusCode: 503}).Rejected())
}

func TestDeviceType_UnmarshalJSON(t *testing.T) {
	var rec device.Record

	require.NoError(t, json.Unmarshal([]byte(`{"device_type":"chromeweb"}`), &rec))
	assert.Equal(t, device.ChromeWeb, *rec.DeviceType)

	require.NoError(t, json.Unmarshal([]byte(`{"device_type":0}`), &rec))
	assert.Equal(t, device.IOS, *rec.DeviceType)

	assert.Error(t, json.Unmarshal([]byte(`{"device_type":6}`), &rec))
	assert.Error(t, json.Unmarshal([]byte(`{"device_type":"pager"}`), &rec))
}
