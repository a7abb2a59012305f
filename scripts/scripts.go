// Command scripts cuts releases of pinsim: it bumps the version, builds each
// harness variant with version ldflags and publishes the archives.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

func must(err error) {
	if err != nil {
		fmt.Println(err)
		panic(err)
	}
}

type SemanticVersion struct {
	major int
	minor int
	patch int
}

var semverRegex = regexp.MustCompile(`^v(\d+)\.(\d+)\.(\d+)$`)

func ParseSemVer(s string) (SemanticVersion, error) {
	m := semverRegex.FindStringSubmatch(s)
	if m == nil {
		return SemanticVersion{}, fmt.Errorf("invalid semantic version: '%s'", s)
	}

	var sv SemanticVersion
	var err error
	for i, dst := range []*int{&sv.major, &sv.minor, &sv.patch} {
		if *dst, err = strconv.Atoi(m[i+1]); err != nil {
			return SemanticVersion{}, err
		}
	}
	return sv, nil
}

// Bump returns the next version for part (major, minor or patch), or parses
// part as an exact version.
func (sv SemanticVersion) Bump(part string) (SemanticVersion, error) {
	switch part {
	case "major":
		return SemanticVersion{major: sv.major + 1}, nil
	case "minor":
		return SemanticVersion{major: sv.major, minor: sv.minor + 1}, nil
	case "patch":
		return SemanticVersion{major: sv.major, minor: sv.minor, patch: sv.patch + 1}, nil
	}
	return ParseSemVer(part)
}

func (sv SemanticVersion) String() string {
	return fmt.Sprintf("v%d.%d.%d", sv.major, sv.minor, sv.patch)
}

// Variant is one build of the harness.
type Variant struct {
	Name   string
	GOOS   string
	GOARCH string
	Tags   []string
}

var variants = []Variant{
	{Name: "sim-linux-amd64", GOOS: "linux", GOARCH: "amd64"},
	{Name: "hil-linux-arm64", GOOS: "linux", GOARCH: "arm64", Tags: []string{"gpio"}},
	{Name: "hil-serialconfig-linux-arm64", GOOS: "linux", GOARCH: "arm64", Tags: []string{"gpio", "serialconfig"}},
}

func ldflags(version, commit string, now time.Time) string {
	return strings.Join([]string{
		"-X main.version=" + version,
		"-X main.buildUnixTimestamp=" + strconv.FormatInt(now.Unix(), 10),
		"-X main.commitHash=" + commit,
	}, " ")
}

// BuildArgs returns the go build arguments for v.
func (v Variant) BuildArgs(out, flags string) []string {
	args := []string{"build", "-o", out, "-ldflags", flags}
	if len(v.Tags) > 0 {
		args = append(args, "-tags", strings.Join(v.Tags, ","))
	}
	return append(args, ".")
}

var (
	actionFlag  string
	versionFlag string
)

func main() {
	flag.StringVar(&actionFlag, "action", "", "build or release")
	flag.StringVar(&versionFlag, "version", "", "Semver part to bump (major, minor, patch) or an exact version (e.g. v1.2.3)")
	flag.Parse()

	switch actionFlag {
	case "":
		fmt.Println("An action is required")
		os.Exit(1)
	case "build":
		build(currentVersion())
	case "release":
		release()
	default:
		fmt.Printf("Invalid action: '%s'\n", actionFlag)
		os.Exit(1)
	}
}

func currentVersion() SemanticVersion {
	out, err := exec.Command("git", "describe", "--abbrev=0").Output()
	must(err)
	v, err := ParseSemVer(strings.TrimSpace(string(out)))
	must(err)
	return v
}

func build(version SemanticVersion) []string {
	commit, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output()
	must(err)
	flags := ldflags(version.String(), strings.TrimSpace(string(commit)), time.Now())

	var archives []string
	for _, v := range variants {
		dir := filepath.Join("dist", v.Name)
		must(os.MkdirAll(dir, 0755))

		cmd := exec.Command("go", v.BuildArgs(filepath.Join(dir, "pinsim"), flags)...)
		cmd.Env = append(os.Environ(), "GOOS="+v.GOOS, "GOARCH="+v.GOARCH, "CGO_ENABLED=0")
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		fmt.Println("Building", v.Name)
		must(cmd.Run())

		archive := filepath.Join("dist", fmt.Sprintf("pinsim-%s-%s.tgz", version, v.Name))
		must(exec.Command("tar", "-czf", archive, "-C", dir, "pinsim").Run())
		archives = append(archives, archive)
	}
	return archives
}

func release() {
	fmt.Println("Cutting new release")

	current := currentVersion()
	fmt.Println("Current version:", current)

	if versionFlag == "" {
		fmt.Println("--version is required with release")
		os.Exit(1)
	}
	next, err := current.Bump(versionFlag)
	must(err)
	fmt.Println("New version:", next)

	archives := build(next)

	args := append([]string{"release", "create", next.String(), "--generate-notes"}, archives...)
	releaseCmd := exec.Command("gh", args...)
	releaseCmd.Stdout = os.Stdout
	releaseCmd.Stderr = os.Stderr
	must(releaseCmd.Run())
}
