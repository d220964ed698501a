package config

// Merge layers over on top of base and returns the result. Fields left at
// their zero value in over keep the base value; nested settings merge
// recursively; lists replace. Neither argument is modified.
func Merge(base, over *Config) *Config {
	out := *base
	if over == nil {
		return &out
	}

	if over.Container != "" {
		out.Container = over.Container
	}
	out.Params = MergeValues(base.Params, over.Params)
	if len(over.Observers) > 0 {
		out.Observers = over.Observers
	}

	if over.Renderer.Engine != "" {
		out.Renderer.Engine = over.Renderer.Engine
	}
	out.Renderer.MathJax = mergeSettings(base.Renderer.MathJax, over.Renderer.MathJax)
	out.Renderer.MathJax2 = mergeSettings(base.Renderer.MathJax2, over.Renderer.MathJax2)
	out.Renderer.KaTeX = mergeSettings(base.Renderer.KaTeX, over.Renderer.KaTeX)

	if over.Loader.PollInterval > 0 {
		out.Loader.PollInterval = over.Loader.PollInterval
	}
	if over.Loader.PollAttempts > 0 {
		out.Loader.PollAttempts = over.Loader.PollAttempts
	}

	if over.Filter.Policy != "" {
		out.Filter.Policy = over.Filter.Policy
	}
	if over.Filter.IgnoreClasses != nil {
		out.Filter.IgnoreClasses = over.Filter.IgnoreClasses
	}

	if over.Resize.Policy != "" {
		out.Resize.Policy = over.Resize.Policy
	}
	if over.RenderTimeout > 0 {
		out.RenderTimeout = over.RenderTimeout
	}

	if over.Browser.Driver != "" {
		out.Browser.Driver = over.Browser.Driver
	}
	if over.Browser.Remote != "" {
		out.Browser.Remote = over.Browser.Remote
	}
	if over.Browser.Headful {
		out.Browser.Headful = true
	}
	if over.Browser.ResourceBlocking != nil {
		out.Browser.ResourceBlocking = over.Browser.ResourceBlocking
	}

	if len(over.Hosts) > 0 {
		out.Hosts = over.Hosts
	}
	return &out
}

func mergeSettings(base, over *EngineSettings) *EngineSettings {
	if over == nil {
		return base
	}
	if base == nil {
		cp := *over
		cp.Config = MergeValues(nil, over.Config)
		return &cp
	}
	out := *base
	if over.Src != "" {
		out.Src = over.Src
	}
	if over.Integrity != "" {
		out.Integrity = over.Integrity
	}
	if over.Styles != nil {
		out.Styles = over.Styles
	}
	if over.Scripts != nil {
		out.Scripts = over.Scripts
	}
	out.Config = MergeValues(base.Config, over.Config)
	return &out
}

// MergeValues deep-merges two free-form value trees, as used for engine
// inline configuration. Keys of over win; when both sides hold a map the
// maps merge recursively. The result shares no maps with its inputs.
func MergeValues(base, over map[string]any) map[string]any {
	if base == nil && over == nil {
		return nil
	}
	out := make(map[string]any, len(base)+len(over))
	for k, v := range base {
		out[k] = cloneValue(v)
	}
	for k, v := range over {
		bm, bok := out[k].(map[string]any)
		om, ook := v.(map[string]any)
		if bok && ook {
			out[k] = MergeValues(bm, om)
			continue
		}
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	if m, ok := v.(map[string]any); ok {
		return MergeValues(m, nil)
	}
	return v
}
