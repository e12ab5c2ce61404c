package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []Segment
		wantErr bool
	}{
		{name: "single key", raw: "propertyCode", want: []Segment{{Key: "propertyCode"}}},
		{name: "dotted", raw: "candidate.firstName", want: []Segment{{Key: "candidate"}, {Key: "firstName"}}},
		{
			name: "index then key",
			raw:  "confirmationIds[0].value",
			want: []Segment{{Key: "confirmationIds"}, {Index: 0, IsIndex: true}, {Key: "value"}},
		},
		{
			name: "quoted key",
			raw:  `meta["x.y"]`,
			want: []Segment{{Key: "meta"}, {Key: "x.y"}},
		},
		{name: "quoted key with bracket", raw: `a["x]y"]`, want: []Segment{{Key: "a"}, {Key: "x]y"}}},
		{name: "single quoted key with bracket", raw: `a['x]y'].z`, want: []Segment{{Key: "a"}, {Key: "x]y"}, {Key: "z"}}},
		{name: "unterminated quote", raw: `a["x]`, wantErr: true},
		{name: "text after quoted key", raw: `a["x"y]`, wantErr: true},
		{name: "nested index", raw: "m[1][2]", want: []Segment{{Key: "m"}, {Index: 1, IsIndex: true}, {Index: 2, IsIndex: true}}},
		{name: "root", raw: "$", want: []Segment{}},
		{name: "empty", raw: "", wantErr: true},
		{name: "leading dot", raw: ".a", wantErr: true},
		{name: "double dot", raw: "a..b", wantErr: true},
		{name: "trailing dot", raw: "a.", wantErr: true},
		{name: "negative index", raw: "a[-1]", wantErr: true},
		{name: "unterminated", raw: "a[0", wantErr: true},
		{name: "missing dot", raw: "a[0]b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePath(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Segments())
			assert.Equal(t, tt.raw, p.String())
		})
	}
}

func TestValue_Lookup(t *testing.T) {
	payload := MustFromInterface(map[string]interface{}{
		"confirmationIds": []interface{}{map[string]interface{}{"value": "A1B2C3"}},
		"candidate":       map[string]interface{}{"id": "CAND-001", "middleName": nil},
		"meta":            map[string]interface{}{"x.y": 1, "a]b": "v"},
	})

	tests := []struct {
		name   string
		path   string
		want   Value
		wantOK bool
	}{
		{name: "array element", path: "confirmationIds[0].value", want: String("A1B2C3"), wantOK: true},
		{name: "nested", path: "candidate.id", want: String("CAND-001"), wantOK: true},
		{name: "explicit null is present", path: "candidate.middleName", want: Null(), wantOK: true},
		{name: "quoted key", path: `meta["x.y"]`, want: Number(1), wantOK: true},
		{name: "quoted key with bracket", path: `meta["a]b"]`, want: String("v"), wantOK: true},
		{name: "out of range", path: "confirmationIds[1].value", wantOK: false},
		{name: "absent", path: "candidate.firstName", wantOK: false},
		{name: "index into object", path: "candidate[0]", wantOK: false},
		{name: "key into string", path: "candidate.id.length", wantOK: false},
		{name: "malformed", path: "candidate..id", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := payload.LookupString(tt.path)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.True(t, tt.want.Equal(got), "got %s", got)
			}
		})
	}
}

func TestValue_LookupRoot(t *testing.T) {
	v := String("x")
	got, ok := v.Lookup(MustParsePath(RootPath))
	assert.True(t, ok)
	assert.True(t, got.Equal(v))
}
