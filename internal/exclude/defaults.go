package exclude

// DefaultNames returns the directory names excluded unless defaults are
// disabled: vendored dependencies, VCS metadata, caches, build output and
// archived or draft material. A fresh slice is returned on every call.
func DefaultNames() []string {
	return []string{
		"node_modules",
		"vendor",
		"bower_components",
		".git",
		".svn",
		".hg",
		"__pycache__",
		".pytest_cache",
		".mypy_cache",
		".tox",
		".nox",
		"venv",
		"env",
		"ENV",
		".venv",
		"virtualenv",
		"target", // Rust, Java
		"build",
		"dist",
		".next",
		".nuxt",
		".cache",
		"pkg", // Go
		"Pods",
		"Carthage",
		"archive",
		".archive",
		"draft",
		".draft",
	}
}

// DefaultIgnoreFileNames lists the per-directory ignore files honoured by default.
func DefaultIgnoreFileNames() []string {
	return []string{".gitignore"}
}
