/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package enip

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/libplctag/libplctag-go/libplctag"

	"github.com/alttch/pulr/internal/config"
)

// SplitHostPort parses a "proto.source" string, appending the AB EtherNet/IP
// default port 44818 when absent.
func SplitHostPort(source string) (string, int, error) {
	if !strings.Contains(source, ":") {
		return source, defaultPort, nil
	}
	host, portStr, err := net.SplitHostPort(source)
	if err != nil {
		return "", 0, fmt.Errorf("malformed proto source %q: %w", source, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("malformed proto port in %q: %w", source, err)
	}
	return host, port, nil
}

// Reader implements scheduler.Reader for EtherNet/IP: it creates and caches
// one libplctag tag handle per distinct attribute path (keyed by its
// stable hash, mirroring the source's active_tags map), and issues a
// blocking Read before returning the handle to the decode worker.
type Reader struct {
	timeout time.Duration
	host    string
	port    int
	path    string
	cpu     string

	tags map[uint64]*libplctag.Tag
}

// NewReader constructs a Reader for the given proto-level gateway
// parameters.
func NewReader(host string, port int, path, cpu string, timeout time.Duration) *Reader {
	return &Reader{
		timeout: timeout,
		host:    host,
		port:    port,
		path:    path,
		cpu:     cpu,
		tags:    make(map[uint64]*libplctag.Tag),
	}
}

// ReadPull implements scheduler.Reader. It returns the *libplctag.Tag
// handle (post-Read) as an interface{} for the decode worker to consume.
func (r *Reader) ReadPull(ctx context.Context, p config.Pull) (interface{}, error) {
	pull, err := ParsePull(p, r.host, r.port, r.path, r.cpu)
	if err != nil {
		return nil, err
	}

	tag, ok := r.tags[pull.PathHash]
	if !ok {
		tag, err = libplctag.NewTag(libplctag.TagCreateAttribs{
			AttribString: pull.Path,
			Timeout:      r.timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("enip %s: create error: %w", pull.Path, err)
		}
		if err := tag.WaitForStatusOK(r.timeout); err != nil {
			return nil, fmt.Errorf("enip %s: status error: %w", pull.Path, err)
		}
		r.tags[pull.PathHash] = tag
	}

	if err := tag.Read(r.timeout); err != nil {
		return nil, fmt.Errorf("enip %s: read error: %w", pull.Path, err)
	}
	return tag, nil
}

// Close releases every cached tag handle.
func (r *Reader) Close() {
	for _, t := range r.tags {
		_ = t.Destroy()
	}
}
