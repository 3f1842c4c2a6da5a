// Command destinygen renders a config file into Go source, so the static
// table is built at compile time instead of at startup.
//
//	destinygen -config routes.json -package main -output static_routes.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/freekieb7/destiny/config"
	"github.com/freekieb7/destiny/http"
)

func main() {
	var (
		configFile  = flag.String("config", "destiny.json", "Config file declaring the routes")
		packageName = flag.String("package", "", "Package name of the generated file (defaults to the output directory's package)")
		outputFile  = flag.String("output", "static_routes.go", "Output file name")
		funcName    = flag.String("func", "StaticTable", "Name of the generated function")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	routes, middleware, opts, err := cfg.Records()
	if err != nil {
		log.Fatalf("Failed to read routes: %v", err)
	}

	table, err := http.BuildContext(context.Background(), routes, middleware, cfg.Server.Version, opts...)
	if err != nil {
		log.Fatalf("Failed to build table: %v", err)
	}

	if *packageName == "" {
		*packageName = packageNameFor(*outputFile)
	}

	source, err := Generate(*outputFile, *packageName, *funcName, table)
	if err != nil {
		log.Fatalf("Failed to generate table: %v", err)
	}

	if err := os.WriteFile(*outputFile, source, 0o644); err != nil {
		log.Fatalf("Failed to write generated code: %v", err)
	}

	fmt.Printf("Generated %d static routes in %s\n", table.Len(), *outputFile)
}
