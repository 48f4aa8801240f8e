package tiles

import "testing"

func Test_EncodingConfig_Validate(t *testing.T) {
	tests := []struct {
		config *EncodingConfig
		valid  bool
	}{
		{config: NewDefaultEncodingConfig(), valid: true},
		{config: NewEncodingConfig(256, 0, 0, 0), valid: true},
		{config: NewEncodingConfig(0, 0, 1, 1), valid: false},
		{config: NewEncodingConfig(256, 256, 1, 1), valid: false},
	}

	for _, tc := range tests {
		err := tc.config.Validate()
		if tc.valid && err != nil {
			t.Errorf("%+v | unexpected error: %v\n", tc.config, err)
		}
		if !tc.valid && err == nil {
			t.Errorf("%+v | expected an error\n", tc.config)
		}
	}
}

func Test_ValidateZoomRange(t *testing.T) {
	tests := []struct {
		minzoom uint16
		maxzoom uint16
		valid   bool
	}{
		{minzoom: 0, maxzoom: 0, valid: true},
		{minzoom: 0, maxzoom: 14, valid: true},
		{minzoom: 5, maxzoom: 4, valid: false},
		{minzoom: 0, maxzoom: 25, valid: false},
	}

	for _, tc := range tests {
		err := ValidateZoomRange(tc.minzoom, tc.maxzoom)
		if tc.valid != (err == nil) {
			t.Errorf("minzoom: %v, maxzoom: %v | unexpected result: %v\n", tc.minzoom, tc.maxzoom, err)
		}
	}
}
