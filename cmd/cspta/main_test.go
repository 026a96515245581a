package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const program = `
entry: Main.main()
classes:
  - name: Object
  - name: String
    extends: Object
  - name: Source
    extends: Object
    methods:
      - name: read
        static: true
        returns: String
  - name: Sink
    extends: Object
    methods:
      - name: write
        static: true
        params: [{name: s, type: String}]
  - name: Main
    extends: Object
    methods:
      - name: main
        static: true
        body:
          - invoke: {to: t, method: Source.read()}
          - copy: {to: u, from: t}
          - invoke: {method: Sink.write(String), args: [u]}
`

const rules = `
sources:
  - {method: "Source.read()", type: String}
sinks:
  - {method: "Sink.write(String)", index: 0}
`

func TestAnalyzeCommand(t *testing.T) {
	dir := t.TempDir()
	progPath := filepath.Join(dir, "prog.yaml")
	require.NoError(t, os.WriteFile(progPath, []byte(program), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "taint.yaml"), []byte(rules), 0o644))
	optsPath := filepath.Join(dir, "opts.yaml")
	require.NoError(t, os.WriteFile(optsPath, []byte("cs: 1-call\ntaint: taint.yaml\nlog-level: error\n"), 0o644))

	run := func(args ...string) report {
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetArgs(args)
		require.NoError(t, rootCmd.Execute())

		var rep report
		require.NoError(t, json.Unmarshal(out.Bytes(), &rep))
		return rep
	}

	rep := run("analyze", "--json", "--options", optsPath, progPath)
	assert.True(t, rep.Complete)
	assert.Equal(t, "1-call", rep.Selector)
	assert.Equal(t, []string{"Main.main()", "Source.read()", "Sink.write(String)"}, rep.Reachable)
	require.Len(t, rep.Flows, 1)
	assert.Equal(t, 0, rep.Flows[0].Index)
	assert.Len(t, rep.Flows[0].Path, 2)

	rep = run("analyze", "--json", "--verify-order", "--cs", "2-obj", "--options", optsPath, progPath)
	assert.Equal(t, "2-obj", rep.Selector, "flags override the options file")
	assert.Len(t, rep.Flows, 1)
}

func TestTextReport(t *testing.T) {
	rep := &report{
		Program:   "prog.yaml",
		Selector:  "ci",
		Complete:  false,
		Reachable: []string{"Main.main()"},
		CallGraph: map[string][]string{},
		PointsTo:  map[string][]string{"Main.main()/x": {"NewObj{Main.main()/0: x = new A}"}},
		Flows:     []flowReport{{Source: "src", Sink: "sink", Index: 1}},
	}

	var out bytes.Buffer
	rep.writeText(&out, false)
	text := out.String()
	assert.Contains(t, text, "prog.yaml (ci)")
	assert.Contains(t, text, "analysis incomplete")
	assert.Contains(t, text, "Main.main()/x -> [NewObj{Main.main()/0: x = new A}]")
	assert.Contains(t, text, "src -> sink [arg 1]")
	assert.NotContains(t, text, "\x1b[", "no escape codes without color")
}
