package parsing

import (
	"testing"

	"github.com/Energinet-DataHub/geh-message-archive/core"
)

func TestParseErrorXML(t *testing.T) {
	doc := `<Errors>
		<Error>
			<Code>SoapError</Code>
			<Message>Request rejected by gateway</Message>
		</Error>
		<Error>
			<Code>B2B-201</Code>
			<Message>Schema validation failed</Message>
		</Error>
	</Errors>`
	raw := testRawRecord(doc)

	rec, err := Parse(KindErrorXML, raw, DefaultLimits())
	if err != nil {
		t.Fatalf("Parse(KindErrorXML) error = %v", err)
	}

	if len(rec.Errors) != 2 {
		t.Fatalf("Errors = %v", rec.Errors)
	}
	want := []core.ErrorEntry{
		{Code: "SoapError", Message: "Request rejected by gateway"},
		{Code: "B2B-201", Message: "Schema validation failed"},
	}
	for i, entry := range want {
		if rec.Errors[i] != entry {
			t.Errorf("Errors[%d] = %+v, want %+v", i, rec.Errors[i], entry)
		}
	}
	if len(rec.TransactionRecords) != 0 {
		t.Errorf("error parsers must not produce transactions, got %v", rec.TransactionRecords)
	}
}

func TestParseErrorXMLSingleRootError(t *testing.T) {
	raw := testRawRecord(`<Error><Code>X</Code><Message>boom</Message></Error>`)

	rec, err := Parse(KindErrorXML, raw, DefaultLimits())
	if err != nil {
		t.Fatalf("Parse(KindErrorXML) error = %v", err)
	}
	if len(rec.Errors) != 1 || rec.Errors[0].Code != "X" {
		t.Errorf("Errors = %v", rec.Errors)
	}
}

func TestParseErrorJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []core.ErrorEntry
	}{
		{
			name:    "outer code and message",
			content: `{"error":{"code":"BadArgument","message":"The identification is invalid"}}`,
			want:    []core.ErrorEntry{{Code: "BadArgument", Message: "The identification is invalid"}},
		},
		{
			name: "details supersede outer pair",
			content: `{"error":{"code":"outer","message":"outer","details":[
				{"code":"B2B-005","message":"first"},
				{"code":"B2B-008","message":"second"}
			]}}`,
			want: []core.ErrorEntry{
				{Code: "B2B-005", Message: "first"},
				{Code: "B2B-008", Message: "second"},
			},
		},
		{
			name:    "empty envelope",
			content: `{"error":{}}`,
			want:    nil,
		},
		{
			name:    "no error key",
			content: `{"status":"failed"}`,
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := testRawRecord(tt.content)

			rec, err := Parse(KindErrorJSON, raw, DefaultLimits())
			if err != nil {
				t.Fatalf("Parse(KindErrorJSON) error = %v", err)
			}

			if len(rec.Errors) != len(tt.want) {
				t.Fatalf("Errors = %v, want %v", rec.Errors, tt.want)
			}
			for i, entry := range tt.want {
				if rec.Errors[i] != entry {
					t.Errorf("Errors[%d] = %+v, want %+v", i, rec.Errors[i], entry)
				}
			}
		})
	}
}

func TestParseErrorJSONMalformed(t *testing.T) {
	raw := testRawRecord(`Error: code 17 rejected`)

	_, err := Parse(KindErrorJSON, raw, DefaultLimits())
	if err == nil {
		t.Fatal("expected error for non-json error body")
	}
}
