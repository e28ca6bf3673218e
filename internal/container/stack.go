// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"errors"
	"fmt"
	"io"
)

// Images pinned for local development.
const (
	ElasticsearchImage = "docker.elastic.co/elasticsearch/elasticsearch:8.17.0"
	RedisImage         = "docker.io/library/redis:7-alpine"
	TEIImage           = "ghcr.io/huggingface/text-embeddings-inference:cpu-1.5"
)

// Stack returns the services matsearch talks to, bound to the ports of
// the default configuration: 9200 (Elasticsearch), 6379 (Redis) and
// 8081 (TEI).
func Stack() []Service {
	return []Service{
		{
			Name:  "matsearch-elasticsearch",
			Image: ElasticsearchImage,
			Ports: map[int]int{9200: 9200},
			Env: map[string]string{
				"discovery.type":         "single-node",
				"xpack.security.enabled": "false",
				"ES_JAVA_OPTS":           "-Xms1g -Xmx1g",
			},
		},
		{
			Name:  "matsearch-redis",
			Image: RedisImage,
			Ports: map[int]int{6379: 6379},
		},
		{
			Name:  "matsearch-tei",
			Image: TEIImage,
			Ports: map[int]int{8081: 80},
			Args:  []string{"--model-id", "sentence-transformers/all-MiniLM-L6-v2"},
		},
	}
}

// Up starts every service that is not already running and reports each
// one on w.
func Up(rt Runtime, services []Service, w io.Writer) error {
	for _, svc := range services {
		if rt.Running(svc.Name) {
			fmt.Fprintf(w, "  %-26s already running\n", svc.Name)
			continue
		}
		if err := rt.Start(svc); err != nil {
			return err
		}
		fmt.Fprintf(w, "  %-26s started (%s)\n", svc.Name, svc.Image)
	}
	return nil
}

// Down stops every running service. It keeps going after a failure and
// returns the joined errors.
func Down(rt Runtime, services []Service, w io.Writer) error {
	var errs []error
	for _, svc := range services {
		if !rt.Running(svc.Name) {
			continue
		}
		if err := rt.Stop(svc.Name); err != nil {
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(w, "  %-26s stopped\n", svc.Name)
	}
	return errors.Join(errs...)
}
