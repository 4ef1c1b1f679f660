package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"
)

// output writes v as indented JSON to the app writer. With --jq set, the
// filter runs over v and every result is written instead.
func output(c *cli.Context, v interface{}) error {
	filter := c.String("jq")
	if filter == "" {
		return writeJSON(c.App.Writer, v)
	}

	code, err := compileJQ(filter)
	if err != nil {
		return err
	}

	results, err := runJQ(code, v)
	if err != nil {
		return err
	}
	for _, r := range results {
		if s, ok := r.(string); ok {
			fmt.Fprintln(c.App.Writer, s)
			continue
		}
		if err := writeJSON(c.App.Writer, r); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func compileJQ(filter string) (*gojq.Code, error) {
	query, err := gojq.Parse(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
	}
	return code, nil
}

// runJQ evaluates code against v. gojq only accepts plain JSON values, so v
// is round-tripped through encoding/json first.
func runJQ(code *gojq.Code, v interface{}) ([]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal jq input: %w", err)
	}
	var input interface{}
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("failed to unmarshal jq input: %w", err)
	}

	var results []interface{}
	iter := code.Run(input)
	for {
		r, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := r.(error); isErr {
			return nil, fmt.Errorf("jq filter error: %w", err)
		}
		results = append(results, r)
	}
	return results, nil
}
