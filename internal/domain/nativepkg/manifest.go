package nativepkg

// Manifest is a rendered control file or spec file.
type Manifest struct {
	// Backend is the backend the manifest was rendered for.
	Backend Kind
	// Name is the file name the backend expects.
	Name string
	// Text is the rendered content.
	Text string
}

// Scriptlet is an RPM install/uninstall script.
type Scriptlet struct {
	// Type is one of pretrans, pre, post, preun, postun, posttrans.
	Type string
	// Interpreter is taken from the script's shebang line; empty means the default shell.
	Interpreter string
	// Body is the script content.
	Body string
}

// ScriptletTypes lists the supported RPM scriptlet types in manifest order.
func ScriptletTypes() []string {
	return []string{"pretrans", "pre", "post", "preun", "postun", "posttrans"}
}

// BuildResult is the outcome of a successful backend invocation.
type BuildResult struct {
	// ArtifactPath is the package file inside the staging directory.
	ArtifactPath string
	// Output is the combined stdout and stderr of the backend.
	Output []byte
}
