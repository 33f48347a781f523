package spec

type sinkConfigs struct {
	Stdout struct {
		Indent       bool `yaml:"indent"`
		PrintSummary bool `yaml:"print_summary"`
	} `yaml:"stdout"`
	Dir struct {
		Out    string `yaml:"out"`
		Indent bool   `yaml:"indent"`
	} `yaml:"dir"`
}

// File is a batch job: which trees to read, how to transform them and
// where to write the results.
type File struct {
	SchemaVersion string `yaml:"schema_version"`

	Source struct {
		Kind       string   `yaml:"kind"`  // "fs"
		Roots      []string `yaml:"roots"` // files or directories, relative to the job file
		Suffix     string   `yaml:"suffix"`
		Watch      bool     `yaml:"watch"`
		DebounceMS int      `yaml:"debounce_ms"`
	} `yaml:"source"`

	// Plugin options handed to every file, e.g. observerCache: true.
	Options map[string]any `yaml:"options"`
	Dialect string         `yaml:"dialect"` // auto|estree|babel
	Workers int            `yaml:"workers"`

	// Remote sends trees to a `flagfold serve` instance instead of the
	// in-process engine.
	Remote struct {
		Address   string `yaml:"address"`
		TimeoutMS int    `yaml:"timeout_ms"`
	} `yaml:"remote"`

	Sinks       []string    `yaml:"sinks"`
	SinkConfigs sinkConfigs `yaml:"sink_configs"`
}
