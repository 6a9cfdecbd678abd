package distwalk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/obriencj-go/javadiff/internal/classfile"
	"github.com/obriencj-go/javadiff/internal/jarbuild"
)

// memDir is a trivial in-memory Dir used so tests don't touch the real
// filesystem.
type memDir struct {
	dirs  map[string][]DirEntry
	files map[string][]byte
}

func (m *memDir) ReadDir(path string) ([]DirEntry, error) {
	ents, ok := m.dirs[path]
	if !ok {
		return nil, fmt.Errorf("no such directory %q", path)
	}
	return ents, nil
}

func (m *memDir) Open(path string) (io.ReadCloser, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("no such file %q", path)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func TestWalkClassifiesAndSorts(t *testing.T) {
	d := &memDir{
		dirs: map[string][]DirEntry{
			"": {
				{Name: "b", IsDir: true},
				{Name: "app.jar", Size: 3},
				{Name: "README.txt", Size: 5},
			},
			"b": {
				{Name: "Foo.class", Size: 4},
			},
		},
		files: map[string][]byte{
			"app.jar":       {1, 2, 3},
			"README.txt":    []byte("hello"),
			"b/Foo.class":   {0xca, 0xfe, 0xba, 0xbe},
		},
	}

	tree, err := Walk(d, "", Options{})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(tree.Artifacts) != 3 {
		t.Fatalf("got %d artifacts, want 3", len(tree.Artifacts))
	}
	// sorted lexicographically by path
	if tree.Artifacts[0].Path != "README.txt" {
		t.Fatalf("first = %q", tree.Artifacts[0].Path)
	}
	byPath := map[string]ArtifactEntry{}
	for _, a := range tree.Artifacts {
		byPath[a.Path] = a
	}
	if byPath["app.jar"].Kind != KindJar {
		t.Fatalf("app.jar kind = %v", byPath["app.jar"].Kind)
	}
	if byPath["b/Foo.class"].Kind != KindClass {
		t.Fatalf("b/Foo.class kind = %v", byPath["b/Foo.class"].Kind)
	}
	if byPath["README.txt"].Kind != KindOther {
		t.Fatalf("README.txt kind = %v", byPath["README.txt"].Kind)
	}
	if !bytes.Equal(byPath["b/Foo.class"].Data, []byte{0xca, 0xfe, 0xba, 0xbe}) {
		t.Fatalf("b/Foo.class Data = %v, want the raw member bytes read during the walk", byPath["b/Foo.class"].Data)
	}
}

func TestWalkRecursesIntoNestedJars(t *testing.T) {
	var inner bytes.Buffer
	if err := jarbuild.Build(&inner, []jarbuild.Entry{
		{Name: "com/example/Inner.class", Data: []byte{0xde, 0xad}},
	}); err != nil {
		t.Fatalf("build inner jar: %v", err)
	}

	d := &memDir{
		dirs: map[string][]DirEntry{
			"": {{Name: "outer.jar", Size: int64(inner.Len())}},
		},
		files: map[string][]byte{
			"outer.jar": inner.Bytes(),
		},
	}

	tree, err := Walk(d, "", Options{RecurseNestedJars: true})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	var foundNested bool
	for _, a := range tree.Artifacts {
		if a.Path == "outer.jar!/com/example/Inner.class" {
			foundNested = true
			if a.Kind != KindClass {
				t.Fatalf("nested entry kind = %v", a.Kind)
			}
		}
	}
	if !foundNested {
		t.Fatalf("expected nested entry, got %+v", tree.Artifacts)
	}
}

func TestWalkContextRespectsCancellation(t *testing.T) {
	d := &memDir{
		dirs: map[string][]DirEntry{
			"": {{Name: "a.class", Size: 1}, {Name: "b.class", Size: 1}},
		},
		files: map[string][]byte{
			"a.class": {1},
			"b.class": {2},
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := WalkContext(ctx, d, "", Options{})
	if !errors.Is(err, classfile.ErrCancelled) {
		t.Fatalf("got %v, want ErrCancelled", err)
	}
}

func TestWalkWithoutRecursionLeavesJarFlat(t *testing.T) {
	var inner bytes.Buffer
	jarbuild.Build(&inner, []jarbuild.Entry{{Name: "x.class", Data: []byte{1}}})

	d := &memDir{
		dirs:  map[string][]DirEntry{"": {{Name: "outer.jar", Size: int64(inner.Len())}}},
		files: map[string][]byte{"outer.jar": inner.Bytes()},
	}

	tree, err := Walk(d, "", Options{RecurseNestedJars: false})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(tree.Artifacts) != 1 {
		t.Fatalf("got %d artifacts, want 1 (no recursion)", len(tree.Artifacts))
	}
}
