package anthropic

import "testing"

func TestParseSuggestions(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    int
		wantErr bool
	}{
		{"plain", `{"shifts":[{"staff_id":"s1","location_id":"c1","date":"2025-01-06","start_time":"07:00","end_time":"19:00"}]}`, 1, false},
		{"json fence", "```json\n{\"shifts\":[{\"location_id\":\"c1\"},{\"location_id\":\"c2\"}]}\n```", 2, false},
		{"bare fence", "```\n{\"shifts\":[]}\n```", 0, false},
		{"prose", "Here is the roster you asked for.", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSuggestions(tt.text)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != tt.want {
				t.Errorf("got %d suggestions, want %d", len(got), tt.want)
			}
		})
	}
}

func TestParseSuggestionsFields(t *testing.T) {
	got, err := ParseSuggestions(`{"shifts":[{"staff_id":"s1","location_id":"c1","station":"Portaria","date":"2025-01-06","start_time":"19:00","end_time":"07:00","notes":"cobrir folga"}]}`)
	if err != nil {
		t.Fatalf("ParseSuggestions: %v", err)
	}
	want := ShiftSuggestion{StaffID: "s1", LocationID: "c1", Station: "Portaria", Date: "2025-01-06", StartTime: "19:00", EndTime: "07:00", Notes: "cobrir folga"}
	if got[0] != want {
		t.Errorf("suggestion = %+v", got[0])
	}
}
