package main

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/mark3labs/stepform/internal/definition"
	"github.com/mark3labs/stepform/internal/hooks"
	"github.com/mark3labs/stepform/internal/logger"
	"github.com/mark3labs/stepform/internal/nats"
	"github.com/mark3labs/stepform/internal/stepform"
	"github.com/mark3labs/stepform/internal/store"
)

// formSession is a mounted form instance, recorded to the event log when
// persistence is enabled.
type formSession struct {
	inst     *definition.Instance
	machine  *stepform.Machine
	conn     *nats.Conn
	store    *store.Store
	recorder *store.Recorder
	previous stepform.Values // Latest submission of the form, if any
	workDir  string          // Directory of the definition, where hooks run
}

// openStore starts the embedded NATS server under the data directory.
func openStore(ctx context.Context) (*nats.Conn, *store.Store, error) {
	conn, err := nats.Open(ctx, filepath.Join(cfg.DataDir, "nats"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open event store: %w", err)
	}
	return conn, store.New(conn.JetStream, conn.Stream), nil
}

// openSession loads the definition at path and mounts it. A non-empty
// resume restores that instance's draft.
func openSession(ctx context.Context, path, resume string) (*formSession, error) {
	form, err := definition.Load(path)
	if err != nil {
		return nil, err
	}
	inst, err := form.Build()
	if err != nil {
		return nil, fmt.Errorf("invalid form %s: %w", form.Name, err)
	}

	sess := &formSession{inst: inst, workDir: filepath.Dir(path)}
	var opts []stepform.Option

	if cfg.Persist {
		sess.conn, sess.store, err = openStore(ctx)
		if err != nil {
			return nil, err
		}

		instance := resume
		if instance == "" {
			instance = store.NewInstanceID()
		} else {
			state, err := sess.store.LoadInstance(ctx, form.Name, resume)
			if err != nil {
				sess.Close()
				return nil, fmt.Errorf("failed to resume %s: %w", resume, err)
			}
			inst.Registry.SetValues(state.Values)
			opts = append(opts, store.Resume(state)...)
			logger.Info("Resuming %s/%s at step %s", form.Name, resume, state.CurrentStep)
		}

		subs, err := sess.store.Submissions(ctx, form.Name)
		if err != nil {
			logger.Warn("Failed to load previous submissions: %v", err)
		} else if len(subs) > 0 {
			sess.previous = subs[len(subs)-1].Values
		}

		sess.recorder = store.NewRecorder(sess.store, form.Name, instance, inst.Registry.AllValues)
		opts = append(opts, stepform.WithObserver(sess.recorder))
	} else if resume != "" {
		return nil, fmt.Errorf("--resume needs persistence (remove --no-persist)")
	}

	sess.machine, err = stepform.New(inst.Directory, inst.Resolver, inst.Registry, opts...)
	if err != nil {
		sess.Close()
		return nil, err
	}
	if sess.recorder != nil {
		sess.recorder.Mount(sess.machine.View())
	}
	return sess, nil
}

// Instance returns the recorded instance ID, or "" without persistence.
func (s *formSession) Instance() string {
	if s.recorder == nil {
		return ""
	}
	return s.recorder.Instance()
}

// submitAction runs the form's on_submit hooks with values as JSON on
// stdin. It returns the output of hooks that pipe it.
func (s *formSession) submitAction(ctx context.Context, values stepform.Values) (string, error) {
	if len(s.inst.Form.Hooks.OnSubmit) == 0 {
		return "", nil
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("encoding payload: %w", err)
	}
	vars := hooks.Variables{Form: s.inst.Form.Name, Instance: s.Instance()}
	return hooks.ExecuteAll(ctx, s.inst.Form.Hooks.OnSubmit, s.workDir, vars, payload)
}

// Close unmounts the form and stops the event store.
func (s *formSession) Close() {
	if s.machine != nil {
		s.machine.Close()
		if s.recorder != nil {
			s.recorder.Close()
		}
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			logger.Warn("Failed to stop event store: %v", err)
		}
	}
}
