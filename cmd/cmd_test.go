package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/naaccr-flat-xml/internal/config"
)

func TestJobFlagsOverrideOnlyWhenSet(t *testing.T) {
	var f jobFlags
	cmd := &cobra.Command{Use: "test"}
	f.register(cmd)
	require.NoError(t, cmd.ParseFlags([]string{
		"--record-type", "I",
		"--group-tumors=false",
		"--dictionary", "a.csv;b.csv",
		"--dictionary-uri", "http://x/a.xml",
		"--keep-artifacts",
		"--items-sheet", "Tumor items",
	}))

	job := config.Default()
	job.NaaccrVersion = "230"
	job.WriteNumbers = true
	require.NoError(t, f.apply(cmd, job))

	assert.Equal(t, "230", job.NaaccrVersion)
	assert.Equal(t, "I", job.RecordType)
	assert.True(t, job.WriteNumbers)
	assert.False(t, job.GroupTumorsEnabled())
	assert.False(t, job.CleanupEnabled())
	assert.Equal(t, "Tumor items", job.ItemsSheet)
	assert.Equal(t, []config.DictionarySource{
		{Path: "a.csv", URI: "http://x/a.xml"},
		{Path: "b.csv", URI: "b.csv"},
	}, job.Dictionaries)
}

func TestConversionTargets(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.dat")
	require.NoError(t, os.WriteFile(a, nil, 0o644))
	require.NoError(t, os.WriteFile(b, nil, 0o644))

	job := config.Default()
	targets, err := conversionTargets(job, []string{a, b})
	require.NoError(t, err)
	assert.Equal(t, []conversionTarget{
		{flat: a, xml: filepath.Join(dir, "a.xml")},
		{flat: b, xml: filepath.Join(dir, "b.xml")},
	}, targets)

	job.XMLFile = filepath.Join(dir, "out.xml")
	_, err = conversionTargets(job, []string{a, b})
	assert.Error(t, err)

	job.FlatFile = a
	targets, err = conversionTargets(job, nil)
	require.NoError(t, err)
	assert.Equal(t, []conversionTarget{{flat: a, xml: job.XMLFile}}, targets)

	_, err = conversionTargets(config.Default(), nil)
	assert.Error(t, err)

	_, err = conversionTargets(config.Default(), []string{filepath.Join(dir, "missing.txt")})
	assert.Error(t, err)
}

func TestRunConvertAndBack(t *testing.T) {
	dir := t.TempDir()
	flat := filepath.Join(dir, "registry.txt")
	lines := "0000012345000000011C509\n0000012345000000011C619\n"
	require.NoError(t, os.WriteFile(flat, []byte(lines), 0o644))

	job := config.Default()
	job.NaaccrVersion = "230"
	job.RecordType = "A"
	job.Items = []string{"registryId patientIdNumber sex primarySite"}
	job.FormatFile = filepath.Join(dir, "layout.sas")
	job.WarningsLog = filepath.Join(dir, "warnings.log")
	job.LogLevel = "error"
	require.NoError(t, job.Validate())

	require.NoError(t, runConvert(context.Background(), job, []string{flat}))

	xmlPath := filepath.Join(dir, "registry.xml")
	content, err := os.ReadFile(xmlPath)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(content), "<Tumor>"))
	assert.Equal(t, 1, strings.Count(string(content), "<Patient>"))
	assert.NoFileExists(t, job.FormatFile, "layout is a job artifact")
	assert.FileExists(t, job.WarningsLog)

	job.XMLFile = xmlPath
	job.FlatFile = filepath.Join(dir, "back.txt")
	require.NoError(t, runToFlat(context.Background(), job))
	back, err := os.ReadFile(job.FlatFile)
	require.NoError(t, err)
	assert.Equal(t, lines, string(back))
}

func TestRunConvertReportsFailures(t *testing.T) {
	dir := t.TempDir()
	flat := filepath.Join(dir, "registry.txt")
	require.NoError(t, os.WriteFile(flat, []byte("x\n"), 0o644))

	job := config.Default()
	job.NaaccrVersion = "230"
	job.RecordType = "A"
	job.LogLevel = "error"
	job.XMLFile = filepath.Join(dir, "missing-dir", "out.xml")

	err := runConvert(context.Background(), job, []string{flat})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 conversion(s) failed")
}

func TestRunConvertKeepsArtifacts(t *testing.T) {
	dir := t.TempDir()
	flat := filepath.Join(dir, "registry.txt")
	require.NoError(t, os.WriteFile(flat, []byte("0000012345000000011C509\n"), 0o644))

	job := config.Default()
	job.NaaccrVersion = "230"
	job.RecordType = "A"
	job.Items = []string{"registryId patientIdNumber sex primarySite"}
	job.FormatFile = filepath.Join(dir, "layout.sas")
	job.FlatFileIsTemporary = true
	job.LogLevel = "error"
	keep := false
	job.Cleanup = &keep

	require.NoError(t, runConvert(context.Background(), job, []string{flat}))
	assert.FileExists(t, job.FormatFile)
	assert.FileExists(t, flat)
	assert.FileExists(t, filepath.Join(dir, "registry.xml"))
}
