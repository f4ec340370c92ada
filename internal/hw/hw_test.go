package hw

import "testing"

func TestParseKey(t *testing.T) {
	tests := []struct {
		name    string
		want    Key
		wantErr bool
	}{
		{"off", KeyOff, false},
		{"auto", KeyRamp, false},
		{"ramp", KeyRamp, false},
		{"closed", KeyClosedLoop, false},
		{"open-loop", KeyOpenLoop, false},
		{"turbo", KeyNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKey(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKey(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseKey(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestPinMapValidate(t *testing.T) {
	if err := DefaultPins().Validate(); err != nil {
		t.Fatalf("default pins rejected: %v", err)
	}

	dup := DefaultPins()
	dup.EncoderB = dup.Fan
	if err := dup.Validate(); err == nil {
		t.Error("expected error for duplicate pin")
	}

	wide := DefaultPins()
	wide.Tach = 32
	if err := wide.Validate(); err == nil {
		t.Error("expected error for pin outside word")
	}
}

func TestPinMask(t *testing.T) {
	if PinFan.Mask() != 0x08 {
		t.Errorf("fan mask = %#x, want 0x08", PinFan.Mask())
	}
	if PinEncoderA.Mask() != 1<<17 {
		t.Errorf("encoder A mask = %#x", PinEncoderA.Mask())
	}
}
