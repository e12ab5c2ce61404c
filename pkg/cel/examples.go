package cel

// PredicateExamples lists rule predicates in the form operators write them.
var PredicateExamples = map[string]string{
	"fixed_length":      `value.size() == 6`,
	"non_blank":         `value.trim() != ""`,
	"pattern":           `value.matches("^[A-Z0-9]+$")`,
	"numeric_range":     `value >= 0.0 && value <= 10000.0`,
	"one_of":            `value in ["ABC", "DEF", "GHI"]`,
	"non_empty_list":    `value.size() > 0`,
	"nested_field":      `has(value.id) && value.id != ""`,
	"timestamp_after":   `timestamp(value) > timestamp("2000-01-01T00:00:00Z")`,
	"uppercase_code":    `value == value.upperAscii()`,
	"success_indicator": `value == 0.0 || value == 1.0`,
}

// ComparatorExamples lists custom mapping comparators.
var ComparatorExamples = map[string]string{
	"case_insensitive": `source.lowerAscii() == destination.lowerAscii()`,
	"trimmed":          `source.trim() == destination.trim()`,
	"prefix":           `destination.startsWith(source)`,
	"cents_to_units":   `source == destination * 100.0`,
	"joined_name":      `source.first + " " + source.last == destination`,
	"list_size":        `source.size() == destination.size()`,
	"same_day":         `timestamp(source).getDate() == timestamp(destination).getDate()`,
}
