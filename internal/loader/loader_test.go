package loader_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/operator-framework/deployfix/internal/loader"
)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDecode(t *testing.T) {
	docs, err := loader.Decode("web.yaml", strings.NewReader(`---
kind: Deployment
metadata: {name: web}
---
---
kind: Service
metadata: {name: web}
`))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "Deployment", docs[0].Object["kind"])
	assert.Equal(t, 0, docs[0].Index)
	assert.Equal(t, "Service", docs[1].Object["kind"])
	assert.Equal(t, 1, docs[1].Index)
	assert.Equal(t, "web.yaml", docs[1].Source)
}

func TestDecodeJSON(t *testing.T) {
	docs, err := loader.Decode("web.json", strings.NewReader(`{"kind": "Deployment", "spec": {"replicas": 2}}`))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Deployment", docs[0].Object["kind"])
}

func TestDecodeMalformed(t *testing.T) {
	_, err := loader.Decode("bad.yaml", strings.NewReader("kind: Deployment\n---\nkind: [\n"))
	assert.ErrorContains(t, err, "document 1")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	manifests := filepath.Join(dir, "manifests")
	require.NoError(t, os.Mkdir(manifests, 0o700))
	require.NoError(t, os.Mkdir(filepath.Join(manifests, "nested"), 0o700))

	write(t, manifests, "b.yml", "kind: Deployment\nmetadata: {name: b}\n")
	write(t, manifests, "a.yaml", "kind: Deployment\nmetadata: {name: a}\n---\nkind: Deployment\nmetadata: {name: a2}\n")
	write(t, manifests, "c.json", `{"kind": "Deployment", "metadata": {"name": "c"}}`)
	write(t, manifests, "README.md", "# not a manifest\n")
	write(t, filepath.Join(manifests, "nested"), "d.yaml", "kind: Deployment\nmetadata: {name: d}\n")
	single := write(t, dir, "single.yaml", "kind: Deployment\nmetadata: {name: single}\n")

	l := loader.New(
		loader.WithConcurrency(2),
		loader.WithStdin(strings.NewReader("kind: Deployment\nmetadata: {name: piped}\n")),
	)
	docs, err := l.Load(context.Background(), []string{single, manifests, loader.Stdin})
	require.NoError(t, err)

	var names, sources []string
	for _, doc := range docs {
		names = append(names, doc.Object["metadata"].(map[string]interface{})["name"].(string))
		sources = append(sources, doc.Provenance().String())
	}
	assert.Equal(t, []string{"single", "a", "a2", "b", "c", "piped"}, names)
	assert.Equal(t, []string{
		single,
		filepath.Join(manifests, "a.yaml"),
		filepath.Join(manifests, "a.yaml") + "#1",
		filepath.Join(manifests, "b.yml"),
		filepath.Join(manifests, "c.json"),
		loader.StdinSource,
	}, sources)
}

func TestLoadReportsEveryFailure(t *testing.T) {
	dir := t.TempDir()
	good := write(t, dir, "good.yaml", "kind: Deployment\n")
	bad := write(t, dir, "bad.yaml", "kind: [\n")
	missing := filepath.Join(dir, "missing.yaml")

	docs, err := loader.New().Load(context.Background(), []string{good, bad, missing})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.yaml")
	assert.Contains(t, err.Error(), "reading "+bad)
	require.Len(t, docs, 1, "readable files are still loaded")
	assert.Equal(t, good, docs[0].Source)
}

func TestLoadCancelled(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "web.yaml", "kind: Deployment\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := loader.New().Load(ctx, []string{path})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsManifest(t *testing.T) {
	for name, want := range map[string]bool{
		"web.yaml":      true,
		"web.yml":       true,
		"web.json":      true,
		"WEB.YAML":      true,
		"web.Yml":       true,
		"web.JSON":      true,
		"README.md":     false,
		"yaml":          false,
		"web.yaml.orig": false,
	} {
		assert.Equal(t, want, loader.IsManifest(name), name)
	}
}
