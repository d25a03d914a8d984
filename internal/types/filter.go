package types

// FilterConfig holds the ordered include and exclude glob lists.
// An empty Include list selects every path that is not excluded.
type FilterConfig struct {
	Include []string `json:"include" yaml:"include"`
	Exclude []string `json:"exclude" yaml:"exclude"`
}
