package catalog

// mockStaticSource implements StaticSource for testing.
type mockStaticSource struct {
	ReadFn func() (map[string]StaticDefinition, error)
}

func (m *mockStaticSource) Read() (map[string]StaticDefinition, error) {
	return m.ReadFn()
}

// mockDynamicSource implements DynamicSource for testing.
type mockDynamicSource struct {
	IOEventsFn func() (map[string]any, error)
}

func (m *mockDynamicSource) IOEvents() (map[string]any, error) {
	return m.IOEventsFn()
}

func staticOf(defs map[string]StaticDefinition) *mockStaticSource {
	return &mockStaticSource{ReadFn: func() (map[string]StaticDefinition, error) { return defs, nil }}
}

func dynamicOf(section map[string]any) *mockDynamicSource {
	return &mockDynamicSource{IOEventsFn: func() (map[string]any, error) { return section, nil }}
}

// mockVersionedSource implements DynamicSource and Versioner for testing.
type mockVersionedSource struct {
	IOEventsFn func() (map[string]any, error)
	VersionFn  func() (string, error)
}

func (m *mockVersionedSource) IOEvents() (map[string]any, error) {
	return m.IOEventsFn()
}

func (m *mockVersionedSource) Version() (string, error) {
	return m.VersionFn()
}
