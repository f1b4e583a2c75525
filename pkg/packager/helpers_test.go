// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/invowk/fnpack/pkg/bundler"
	"github.com/invowk/fnpack/pkg/descriptor"
	"github.com/invowk/fnpack/pkg/types"
)

var errObjectNotFound = errors.New("object not found")

type (
	// memStore serves environment files from memory keyed by bucket/project/stage.
	memStore struct {
		objects map[string][]byte
		err     error
	}

	// fakeBuilder records bundle requests and returns canned output.
	fakeBuilder struct {
		mu        sync.Mutex
		requests  []bundler.Options
		code      []byte
		metafile  []byte
		bundleErr error
		minified  []byte
		minifyErr error
		minifies  int
	}
)

func newMemStore(env string) *memStore {
	return &memStore{objects: map[string][]byte{storeKey("bucket", "proj", "dev"): []byte(env)}}
}

func storeKey(bucket, project, stage string) string {
	return bucket + "/" + project + "/" + stage
}

func (s *memStore) Fetch(_ context.Context, bucket, project, stage string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	data, ok := s.objects[storeKey(bucket, project, stage)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", storeKey(bucket, project, stage), errObjectNotFound)
	}
	return data, nil
}

func (b *fakeBuilder) Bundle(_ context.Context, opts bundler.Options) (*bundler.Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, opts)
	if b.bundleErr != nil {
		return nil, b.bundleErr
	}
	return &bundler.Result{Code: b.code, Metafile: b.metafile}, nil
}

func (b *fakeBuilder) Minify(_ context.Context, _ []byte) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.minifies++
	if b.minifyErr != nil {
		return nil, b.minifyErr
	}
	return b.minified, nil
}

func devTarget() Target {
	return Target{Region: "us-east-1", Bucket: "bucket", Project: "proj", Stage: "dev"}
}

func rawDescriptor(handler string, excludes ...string) *descriptor.Descriptor {
	return &descriptor.Descriptor{
		Name:       "fn",
		Path:       "/project/fn/awsm.json",
		Deployment: descriptor.Deployment{Type: "AWS::Lambda::Function", Runtime: "nodejs", Handler: types.HandlerRef(handler)},
		Package:    descriptor.PackageOptions{ExcludePatterns: excludes, Optimize: descriptor.RawSettings{}},
	}
}

func bundledDescriptor(handler string, settings descriptor.BundledSettings, includes ...string) *descriptor.Descriptor {
	d := rawDescriptor(handler)
	d.Package.Optimize = settings
	d.Package.IncludePaths = includes
	return d
}
