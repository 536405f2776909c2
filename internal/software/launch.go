package software

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"craftinstall/internal/domain"
	"craftinstall/internal/server"
)

const serverJar = "server.jar"

// launchJar runs "java <pre> -jar <jar> [nogui] <post>" in the server directory
func launchJar(inst *server.Instance, jar string, nogui bool) (server.LaunchSpec, error) {
	if _, err := os.Stat(filepath.Join(inst.Dir(), jar)); err != nil {
		return server.LaunchSpec{}, fmt.Errorf("%s: %w", jar, domain.ErrServerJarNotFound)
	}
	args := append(inst.JavaPreArgs(), "-jar", jar)
	if nogui {
		args = append(args, "nogui")
	}
	return server.LaunchSpec{
		Path: inst.JavaPath(),
		Args: append(args, inst.JavaPostArgs()...),
		Dir:  inst.Dir(),
	}, nil
}

// launchForge prefers the argument file modern Forge and NeoForge installers
// write under libraries/, and falls back to the legacy universal jar.
func launchForge(inst *server.Instance) (server.LaunchSpec, error) {
	fsys := os.DirFS(inst.Dir())

	argsFile := "unix_args.txt"
	if runtime.GOOS == "windows" {
		argsFile = "win_args.txt"
	}
	matches, err := doublestar.Glob(fsys, "libraries/**/"+argsFile)
	if err != nil {
		return server.LaunchSpec{}, err
	}
	if len(matches) > 0 {
		build := inst.Record().GetString(server.KeyBuild)
		pick := matches[0]
		for _, m := range matches {
			if build != "" && strings.Contains(m, build) {
				pick = m
				break
			}
		}
		args := inst.JavaPreArgs()
		if _, err := fs.Stat(fsys, "user_jvm_args.txt"); err == nil {
			args = append(args, "@user_jvm_args.txt")
		}
		args = append(args, "@"+filepath.FromSlash(pick), "nogui")
		return server.LaunchSpec{
			Path: inst.JavaPath(),
			Args: append(args, inst.JavaPostArgs()...),
			Dir:  inst.Dir(),
		}, nil
	}

	jars, err := doublestar.Glob(fsys, "{forge,neoforge,minecraftforge}-*.jar")
	if err != nil {
		return server.LaunchSpec{}, err
	}
	jars = slices.DeleteFunc(jars, func(j string) bool { return strings.Contains(j, "installer") })
	if len(jars) == 0 {
		return server.LaunchSpec{}, fmt.Errorf("forge launch files: %w", domain.ErrServerJarNotFound)
	}
	slices.Sort(jars)
	return launchJar(inst, jars[len(jars)-1], true)
}

// launchBedrock runs the native bedrock_server binary
func launchBedrock(inst *server.Instance) (server.LaunchSpec, error) {
	name := "bedrock_server"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	path := filepath.Join(inst.Dir(), name)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return server.LaunchSpec{}, fmt.Errorf("%s: %w", name, domain.ErrServerJarNotFound)
		}
		return server.LaunchSpec{}, err
	}
	return server.LaunchSpec{
		Path: path,
		Dir:  inst.Dir(),
		Env:  []string{"LD_LIBRARY_PATH=" + inst.Dir()},
	}, nil
}
