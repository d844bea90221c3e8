// Package project scaffolds new projects and wires a loaded project's
// configuration into a buildable site.
package project

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/noise/internal/config"
	nerrors "git.home.luguber.info/inful/noise/internal/errors"
	"git.home.luguber.info/inful/noise/internal/logfields"
	"git.home.luguber.info/inful/noise/internal/paths"
)

// StarterTemplate is the template written for the "/" route of a new project.
const StarterTemplate = "index.html"

const starterHTML = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="UTF-8">
    <title>{{index.current.pwd}}</title>
  </head>
  <body>
    <ul>
{{#index.current.items}}
      <li><a href="{{name}}">{{name}}</a></li>
{{/index.current.items}}
    </ul>
  </body>
</html>
`

// Init creates the project skeleton under dir: the root, static and template
// directories, a default config.json and a starter template. Existing files
// are left alone.
func Init(dir string) (*paths.Resolver, error) {
	p, err := paths.New(dir)
	if err != nil {
		return nil, nerrors.ValidationFailed("project", err.Error())
	}
	if err := p.Init(); err != nil {
		return nil, nerrors.FilesystemError("create project", err)
	}

	raw, err := config.Marshal(config.Defaults())
	if err != nil {
		return nil, nerrors.InternalError("encode default config", err)
	}
	if err := writeIfMissing(p.Config, raw); err != nil {
		return nil, nerrors.FilesystemError("write config", err)
	}
	if err := writeIfMissing(p.TemplatePath(StarterTemplate), []byte(starterHTML)); err != nil {
		return nil, nerrors.FilesystemError("write starter template", err)
	}
	slog.Info("Project initialized", logfields.Project(p.Root))
	return p, nil
}

func writeIfMissing(path string, data []byte) error {
	if _, err := os.Stat(path); err == nil {
		slog.Debug("Keeping existing file", logfields.Path(path))
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, data, 0o644) // #nosec G306 -- project source file
}
