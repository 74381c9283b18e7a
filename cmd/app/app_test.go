package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchOutputPath(t *testing.T) {
	tests := []struct {
		outDir string
		input  string
		want   string
	}{
		{"out", "photos/alice.png", filepath.Join("out", "alice_studio.jpg")},
		{"out", "bob.jpeg", filepath.Join("out", "bob_studio.jpg")},
		{"s3://bucket/results", "carol.tif", "s3://bucket/results/carol_studio.jpg"},
		{"s3://bucket/results/", "s3://in/dave.jpg", "s3://bucket/results/dave_studio.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, batchOutputPath(tt.outDir, tt.input))
		})
	}
}

func TestInitLogger(t *testing.T) {
	debug := initLogger(true, "error")
	assert.Equal(t, logrus.DebugLevel, debug.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, debug.Formatter)

	prod := initLogger(false, "warn")
	assert.Equal(t, logrus.WarnLevel, prod.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, prod.Formatter)

	fallback := initLogger(false, "nonsense")
	assert.Equal(t, logrus.InfoLevel, fallback.GetLevel())
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()

	names := map[string]bool{}
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"portrait", "batch", "serve", "worker", "enqueue"} {
		assert.True(t, names[want], "missing command %s", want)
	}

	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs([]string{"--version"})
	require.NoError(t, root.Execute())
	assert.Equal(t, AppVersion+"\n", out.String())
}
