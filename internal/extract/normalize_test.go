package extract

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"crlf and blank lines", "a\r\n\n\nb  ", "a\nb"},
		{"bare carriage returns", "a\rb\rc", "a\nb\nc"},
		{"surrounding whitespace", "\n\n  Heart Rate: 72  \n\n", "Heart Rate: 72"},
		{"inner spacing kept", "Blood  Pressure :  120/80\nPulse 70", "Blood  Pressure :  120/80\nPulse 70"},
		{"whitespace only", " \r\n\t ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"a\r\n\n\nb  ",
		"line1\r\r\rline2\n \n\nline3",
		"  Patient ID: X-1\n\n\n\nAge: 40 \r\n",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
