package scan

import (
	"errors"
	"io/fs"
	"reflect"
	"testing"
	"testing/fstest"
)

func TestScan_MaxDepth(t *testing.T) {
	fsys := fstest.MapFS{
		"root/a.jpg":            &fstest.MapFile{Data: []byte("a")},
		"root/b.MP4":            &fstest.MapFile{Data: []byte("b")},
		"root/c.txt":            &fstest.MapFile{Data: []byte("c")},
		"root/sub/d.png":        &fstest.MapFile{Data: []byte("d")},
		"root/sub/nested/e.mov": &fstest.MapFile{Data: []byte("e")},
	}

	testCases := []struct {
		name     string
		maxDepth int
		want     []string
	}{
		{
			name:     "depth 0 includes only top-level",
			maxDepth: 0,
			want:     []string{"a.jpg", "b.MP4", "c.txt"},
		},
		{
			name:     "depth 1 includes one subdirectory",
			maxDepth: 1,
			want:     []string{"a.jpg", "b.MP4", "c.txt", "sub/d.png"},
		},
		{
			name:     "unlimited",
			maxDepth: -1,
			want:     []string{"a.jpg", "b.MP4", "c.txt", "sub/d.png", "sub/nested/e.mov"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.MaxDepth = tc.maxDepth

			got, err := Scan(fsys, "root", opts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("unexpected result\n got: %#v\nwant: %#v", got, tc.want)
			}
		})
	}
}

func TestScan_IgnoresBookkeepingFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"root/.DS_Store":     &fstest.MapFile{Data: []byte("x")},
		"root/sub/Thumbs.db": &fstest.MapFile{Data: []byte("x")},
		"root/a.xmp":         &fstest.MapFile{Data: []byte("b")},
	}

	got, err := Scan(fsys, "root", DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if want := []string{"a.xmp"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestScan_NaturalOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"IMG_10.jpg": &fstest.MapFile{Data: []byte("a")},
		"IMG_2.jpg":  &fstest.MapFile{Data: []byte("a")},
		"IMG_1.jpg":  &fstest.MapFile{Data: []byte("a")},
	}

	got, err := Scan(fsys, ".", DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"IMG_1.jpg", "IMG_2.jpg", "IMG_10.jpg"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestScan_ExtensionFilter(t *testing.T) {
	fsys := fstest.MapFS{
		"root/a.JPG": &fstest.MapFile{Data: []byte("a")},
		"root/b.txt": &fstest.MapFile{Data: []byte("b")},
	}

	opts := DefaultOptions()
	opts.Extensions = []string{"jpg"}

	records, err := ScanRecords(fsys, "root", opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Path != "a.JPG" || records[0].FileSizeBytes != 1 {
		t.Fatalf("unexpected records %#v", records)
	}
}

func TestScan_InvalidMaxDepth(t *testing.T) {
	fsys := fstest.MapFS{}

	opts := DefaultOptions()
	opts.MaxDepth = -2

	_, err := Scan(fsys, "root", opts)
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
}

// lockedDirFS refuses to list one directory.
type lockedDirFS struct {
	fstest.MapFS
	locked string
}

func (f lockedDirFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if name == f.locked {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrPermission}
	}
	return f.MapFS.ReadDir(name)
}

func TestScan_SkipsUnreadableDirectory(t *testing.T) {
	fsys := lockedDirFS{
		MapFS: fstest.MapFS{
			"root/a.jpg":         &fstest.MapFile{Data: []byte("a")},
			"root/private/b.jpg": &fstest.MapFile{Data: []byte("b")},
			"root/z/c.jpg":       &fstest.MapFile{Data: []byte("c")},
		},
		locked: "root/private",
	}

	var skipped []string
	opts := DefaultOptions()
	opts.OnError = func(path string, err error) {
		if !errors.Is(err, fs.ErrPermission) {
			t.Errorf("unexpected error for %s: %v", path, err)
		}
		skipped = append(skipped, path)
	}

	got, err := Scan(fsys, "root", opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"a.jpg", "z/c.jpg"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected result\n got: %#v\nwant: %#v", got, want)
	}
	if want := []string{"private"}; !reflect.DeepEqual(skipped, want) {
		t.Fatalf("unexpected skipped entries %v", skipped)
	}
}

func TestScan_UnreadableRootFails(t *testing.T) {
	fsys := lockedDirFS{
		MapFS:  fstest.MapFS{"root/a.jpg": &fstest.MapFile{Data: []byte("a")}},
		locked: "root",
	}

	if _, err := Scan(fsys, "root", DefaultOptions()); !errors.Is(err, fs.ErrPermission) {
		t.Fatalf("expected permission error, got %v", err)
	}
}
