package types

import "testing"

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{"valid", Config{DBPath: "/tmp/x.db", BatchSize: 500}, nil},
		{"zero batch size is valid", Config{DBPath: "/tmp/x.db"}, nil},
		{"empty path", Config{BatchSize: 500}, ErrDBPathEmpty},
		{"negative batch size", Config{DBPath: "/tmp/x.db", BatchSize: -1}, ErrBatchSizeInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_EffectiveBatchSize(t *testing.T) {
	if got := (Config{BatchSize: 250}).EffectiveBatchSize(); got != 250 {
		t.Errorf("expected 250, got %d", got)
	}
	if got := (Config{}).EffectiveBatchSize(); got != DefaultBatchSize {
		t.Errorf("expected default %d, got %d", DefaultBatchSize, got)
	}
}
