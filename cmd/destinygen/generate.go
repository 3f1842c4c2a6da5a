package main

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/freekieb7/destiny/http"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/imports"
)

const header = "// Code generated by destinygen. DO NOT EDIT.\n\n"

// Generate renders Go source declaring funcName, which returns table as it
// was built from the config.
func Generate(filename, packageName, funcName string, table *http.Table) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(header)
	fmt.Fprintf(&buf, "package %s\n\n", packageName)
	buf.WriteString("import \"github.com/freekieb7/destiny/http\"\n\n")

	fmt.Fprintf(&buf, "// %s returns the pre-rendered static table.\n", funcName)
	fmt.Fprintf(&buf, "func %s() *http.Table {\n", funcName)
	buf.WriteString("\tresponses := map[http.RequestKey][]byte{\n")
	for _, key := range table.Keys() {
		response, _ := table.Lookup(key)
		fmt.Fprintf(&buf, "\t\thttp.KeyFromString(%q): []byte(%q),\n", key.String(), response)
	}
	buf.WriteString("\t}\n\n")
	fmt.Fprintf(&buf, "\treturn http.NewTable(%q, responses, []byte(%q))\n", table.Version(), table.NotFound())
	buf.WriteString("}\n")

	source, err := imports.Process(filename, buf.Bytes(), nil)
	if err != nil {
		return nil, fmt.Errorf("destinygen: format %s: %w", filename, err)
	}
	return source, nil
}

// packageNameFor reports the name of the package already living in the
// output directory, or "main" when there is none.
func packageNameFor(output string) string {
	cfg := &packages.Config{
		Mode:  packages.NeedName,
		Dir:   filepath.Dir(output),
		Tests: false,
	}

	pkgs, err := packages.Load(cfg, ".")
	if err != nil || len(pkgs) == 0 || pkgs[0].Name == "" {
		return "main"
	}
	return pkgs[0].Name
}
