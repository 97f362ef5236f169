package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/woozymasta/geolayers/internal/export"
	"github.com/woozymasta/geolayers/internal/normalize"
	"github.com/woozymasta/geolayers/internal/source"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

type Options struct {
	Input  string `short:"i" long:"in"     description:"Input file path (GeoJSON, KML or KMZ). Reads GeoJSON from stdin if empty"`
	Output string `short:"o" long:"out"    description:"Output file path. Writes to stdout if empty"`
	Format string `short:"f" long:"format" description:"Output format" choice:"json" choice:"yaml" choice:"geojson" choice:"fgb" default:"json"`
	Source string `short:"s" long:"source" description:"Input format, detected from the file extension if empty" choice:"geojson" choice:"kml" choice:"kmz"`
	Name   string `short:"n" long:"name"   description:"Layer name written into FlatGeobuf headers"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Read Input
	var inputData []byte
	var err error

	if opts.Input != "" {
		inputData, err = os.ReadFile(opts.Input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading input file: %v\n", err)
			os.Exit(1)
		}
	} else {
		inputData, err = io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", err)
			os.Exit(1)
		}
	}

	format := source.Format(opts.Source)
	if format == "" {
		format = source.DetectFormat(opts.Input)
	}

	fc, err := source.Decode(inputData, format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding %s input: %v\n", format, err)
		os.Exit(1)
	}

	res, err := normalize.Process(fc)
	if err != nil {
		var failure *normalize.Failure
		if errors.As(err, &failure) {
			fmt.Fprintf(os.Stderr, "Layer rejected (%s): %v\n", failure.Kind, err)
		} else {
			fmt.Fprintf(os.Stderr, "Error normalizing data: %v\n", err)
		}
		os.Exit(1)
	}

	// marshal
	var outputData []byte
	switch opts.Format {
	case "yaml":
		outputData, err = yaml.Marshal(res)
	case "geojson":
		outputData, err = json.MarshalIndent(export.FeatureCollection(res), "", "  ")
	case "fgb":
		var buf bytes.Buffer
		err = export.WriteFlatGeobuf(&buf, res, opts.Name)
		outputData = buf.Bytes()
	default:
		outputData, err = json.MarshalIndent(res, "", "  ")
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling data: %v\n", err)
		os.Exit(1)
	}

	if opts.Output != "" {
		err = os.WriteFile(opts.Output, outputData, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Successfully normalized %d features into %d %s records to %s (format: %s)\n",
			len(fc.Features), len(res.Records), res.GeometryType, opts.Output, opts.Format)
	} else if opts.Format == "fgb" {
		_, _ = os.Stdout.Write(outputData)
	} else {
		fmt.Println(string(outputData))
	}
}
