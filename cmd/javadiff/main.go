// Package main provides the javadiff CLI: decode a single class file, or
// compare two classes, two JARs, or two distribution directories, and print
// the resulting delta tree.
//
// Modes:
//   - INFO mode : javadiff -info <path.class>
//   - DIFF mode : javadiff -left <old> -right <new> [flags]
//
// Key design goals:
//   - Deterministic output (the delta tree is already sorted by the library)
//   - Clear, minimal CLI flags with sensible defaults
//   - No framework dependency; stderr carries diagnostics, stdout carries
//     the result
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/obriencj-go/javadiff/internal/cache"
	"github.com/obriencj-go/javadiff/internal/classfile"
	"github.com/obriencj-go/javadiff/internal/config"
	"github.com/obriencj-go/javadiff/internal/diffengine"
	"github.com/obriencj-go/javadiff/internal/distwalk"
	"github.com/obriencj-go/javadiff/internal/jar"
	"github.com/obriencj-go/javadiff/internal/jarsig"
	"github.com/obriencj-go/javadiff/internal/manifest"

	"flag"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  INFO   : %s -info <path.class>\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(os.Stderr, "  DIFF   : %s -left <old> -right <new> [flags]\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(os.Stderr, "  VERIFY : %s -verify <path.jar>\n", filepath.Base(os.Args[0]))
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flag.PrintDefaults()
	}

	infoFlag := flag.String("info", "", "path to a .class file to decode and summarize")
	verifyFlag := flag.String("verify", "", "path to a .jar file whose manifest digests should be verified")
	leftFlag := flag.String("left", "", "left (old) side of a diff: .class, .jar, or a distribution directory")
	rightFlag := flag.String("right", "", "right (new) side of a diff: .class, .jar, or a distribution directory")
	configFlag := flag.String("config", "", "path to a YAML config file (see internal/config); defaults apply if omitted")
	showIgnoredFlag := flag.Bool("show-ignored", false, "keep ignored-but-unchanged nodes in the rendered delta tree")
	ignoreFlag := flag.String("ignore", "", "comma-separated ignore tokens, overriding the config file's list")
	flag.Parse()

	cfg, err := loadConfig(*configFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
	if *ignoreFlag != "" {
		cfg.Ignore = splitCSV(*ignoreFlag)
	}
	if *showIgnoredFlag {
		cfg.ShowIgnored = true
	}

	switch {
	case *infoFlag != "":
		runInfo(*infoFlag)
	case *verifyFlag != "":
		runVerify(*verifyFlag, cfg)
	case *leftFlag != "" && *rightFlag != "":
		runDiff(*leftFlag, *rightFlag, cfg)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadFile(path)
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func runInfo(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
	cf, err := classfile.Decode(data)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
	fmt.Printf("class %s extends %s\n", cf.ThisClass, cf.SuperClass)
	fmt.Printf("  version: %d.%d (%s)\n", cf.MajorVersion, cf.MinorVersion, classfile.PlatformName(cf.MajorVersion))
	fmt.Printf("  interfaces: %s\n", strings.Join(cf.Interfaces, ", "))
	fmt.Printf("  fields: %d, methods: %d\n", len(cf.Fields), len(cf.Methods))
	for _, w := range cf.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
}

func runVerify(path string, cfg *config.Config) {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
	archive, err := jar.Open(f, info.Size())
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
	mfBytes, err := archive.EntryBytes("META-INF/MANIFEST.MF")
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR: no manifest:", err)
		os.Exit(1)
	}
	mf, err := manifest.Parse(mfBytes)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
	results := manifest.VerifyDigests(archive, mf)
	failures := 0
	for _, r := range results {
		if r.OK {
			continue
		}
		failures++
		fmt.Printf("MISMATCH %s (%s): declared=%s computed=%s\n",
			r.Mismatch.Entry, r.Mismatch.Algorithm, r.Mismatch.Declared, r.Mismatch.Computed)
	}
	fmt.Printf("%d entries checked, %d mismatches (preferred algorithm: %s)\n",
		len(results), failures, cfg.DigestAlgorithm)

	sigFailures := verifySignatureBlocks(archive)
	failures += sigFailures

	if failures > 0 {
		os.Exit(1)
	}
}

// verifySignatureBlocks checks every "META-INF/X.SF" entry that has a
// matching "META-INF/X.RSA" block against the certificate embedded in that
// block, returning the number of signature files that failed to verify.
func verifySignatureBlocks(archive *jar.Archive) int {
	failures := 0
	for _, e := range archive.Entries() {
		if !strings.HasPrefix(e.Name, "META-INF/") || !strings.HasSuffix(e.Name, ".SF") {
			continue
		}
		base := strings.TrimSuffix(e.Name, ".SF")
		blockEntry, ok := archive.ByName(base + ".RSA")
		if !ok {
			continue
		}
		sf, err := e.Bytes()
		if err != nil {
			continue
		}
		block, err := blockEntry.Bytes()
		if err != nil {
			continue
		}
		cert, err := jarsig.ExtractCertificate(block)
		if err != nil {
			fmt.Printf("SIGNATURE %s: %v\n", e.Name, err)
			failures++
			continue
		}
		backend := jarsig.NewVerifyBackend(cert.Raw)
		ok2, err := backend.Verify(sf, block, cert)
		if err != nil || !ok2 {
			fmt.Printf("SIGNATURE %s: verification failed (%v)\n", e.Name, err)
			failures++
			continue
		}
		fmt.Printf("SIGNATURE %s: ok\n", e.Name)
	}
	return failures
}

func runDiff(left, right string, cfg *config.Config) {
	pol := cfg.IgnorePolicy()
	cache.SetRenameSimilarity(cfg.RenameSimilarity.Enabled, cfg.RenameSimilarity.Threshold)

	var delta *diffengine.Delta
	switch {
	case isDir(left) && isDir(right):
		lt, err := distwalk.Walk(distwalk.NewOSDir(left), ".", distwalk.Options{RecurseNestedJars: true})
		if err != nil {
			fatal(err)
		}
		rt, err := distwalk.Walk(distwalk.NewOSDir(right), ".", distwalk.Options{RecurseNestedJars: true})
		if err != nil {
			fatal(err)
		}
		cache.SetContentProvider(cache.NewDirContentProvider(distwalk.NewOSDir(left), distwalk.NewOSDir(right)))
		delta = diffengine.CompareDist(lt, rt, pol)
	case hasSuffix(left, ".jar") && hasSuffix(right, ".jar"):
		la, lf := openJar(left)
		ra, rf := openJar(right)
		defer lf.Close()
		defer rf.Close()
		delta = diffengine.CompareJar(la, ra, pol)
	default:
		lc := decodeClassFile(left)
		rc := decodeClassFile(right)
		delta = diffengine.CompareClass(lc, rc, pol)
	}

	diffengine.ApplyIgnores(delta, pol, cfg.ShowIgnored)

	out, err := json.MarshalIndent(delta, "", "  ")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(out))
	if delta.Change != diffengine.ChangeUnchanged {
		os.Exit(1)
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func hasSuffix(path, suffix string) bool {
	return strings.HasSuffix(strings.ToLower(path), suffix)
}

func openJar(path string) (*jar.Archive, *os.File) {
	f, err := os.Open(path)
	if err != nil {
		fatal(err)
	}
	info, err := f.Stat()
	if err != nil {
		fatal(err)
	}
	a, err := jar.Open(f, info.Size())
	if err != nil {
		fatal(err)
	}
	return a, f
}

func decodeClassFile(path string) *classfile.ClassFile {
	data, err := os.ReadFile(path)
	if err != nil {
		fatal(err)
	}
	cf, err := classfile.Decode(data)
	if err != nil {
		fatal(err)
	}
	return cf
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "ERROR:", err)
	os.Exit(1)
}
