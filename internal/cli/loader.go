package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/storygram/internal/compiler"
	"github.com/roach88/storygram/internal/engine"
	"github.com/roach88/storygram/internal/graph"
	"github.com/roach88/storygram/internal/ir"
)

// Inputs is a loaded world and the compiled productions to run on it.
type Inputs struct {
	World       *graph.World
	Productions []*engine.Production
}

// LoadInputs reads a world file and one or more productions files. The
// productions are validated as one set, so titles must be unique across
// files. Every failure is a command error.
func LoadInputs(worldPath string, productionPaths []string) (*Inputs, error) {
	world, err := loadWorld(worldPath)
	if err != nil {
		return nil, err
	}

	var docs []ir.ProductionDoc
	for _, path := range productionPaths {
		ds, err := compiler.LoadProductionsFile(path)
		if err != nil {
			return nil, fileError(path, err)
		}
		docs = append(docs, ds...)
	}
	if len(docs) == 0 {
		return nil, commandError(ErrCodeInvalidInput, "no productions loaded", nil)
	}
	if errs := compiler.ValidateProductions(docs); len(errs) > 0 {
		return nil, &ExitError{
			Code:    ExitCommandError,
			ErrCode: errs[0].Code,
			Message: fmt.Sprintf("invalid productions (%d error(s))", len(errs)),
			Err:     errs[0],
		}
	}

	productions, err := engine.LoadProductions(docs)
	if err != nil {
		return nil, commandError(ErrCodeInvalidInput, "failed to compile productions", err)
	}
	return &Inputs{World: world, Productions: productions}, nil
}

func loadWorld(path string) (*graph.World, error) {
	world, err := compiler.LoadWorldFile(path)
	if err != nil {
		return nil, fileError(path, err)
	}
	return world, nil
}

// fileError maps a load failure to a command error: missing files report
// ErrCodeNotFound, world load failures their own code.
func fileError(path string, err error) *ExitError {
	if errors.Is(err, os.ErrNotExist) {
		return commandError(ErrCodeNotFound, fmt.Sprintf("file not found: %s", path), nil)
	}
	var le *graph.LoadError
	if errors.As(err, &le) {
		return commandError(string(le.Code), fmt.Sprintf("invalid world %s", path), err)
	}
	return commandError(ErrCodeInvalidInput, fmt.Sprintf("failed to load %s", path), err)
}

// mainLocation resolves the --location and --subject flags.
func (in *Inputs) mainLocation(location, subject string) (graph.Handle, graph.Handle, error) {
	loc, err := engine.FindLocation(in.World, location)
	if err != nil {
		return graph.Handle{}, graph.Handle{}, commandError(ErrCodeNotFound, "unknown location", err)
	}
	subj, err := engine.ResolveSubject(in.World, loc, subject)
	if err != nil {
		return graph.Handle{}, graph.Handle{}, commandError(ErrCodeNotFound, "unknown subject", err)
	}
	return loc, subj, nil
}
