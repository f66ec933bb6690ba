package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

type serviceAccountInfo struct {
	ClientEmail string `json:"client_email"`
	ProjectID   string `json:"project_id"`
}

// describeServiceAccount reads the identity fields of a key file and logs them.
func describeServiceAccount(path string) (serviceAccountInfo, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("service account file not readable")
		return serviceAccountInfo{}, err
	}
	return parseServiceAccount(path, content)
}

func parseServiceAccount(path string, content []byte) (serviceAccountInfo, error) {
	var info serviceAccountInfo
	if err := json.Unmarshal(content, &info); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("could not parse service account JSON")
		return info, err
	}
	if info.ClientEmail == "" {
		log.Warn().Str("path", path).Msg("could not find client_email in service account file")
	}
	log.Info().
		Str("path", path).
		Str("client_email", info.ClientEmail).
		Str("project_id", info.ProjectID).
		Msg("service account found")
	return info, nil
}

// newBigQueryClient prefers the key file and falls back to Application Default Credentials.
func newBigQueryClient(ctx context.Context, config Config) (*bigquery.Client, error) {
	projectID := config.BQProjectID
	info, infoErr := describeServiceAccount(config.BQKeyPath)
	if projectID == "" {
		projectID = info.ProjectID
	}
	if projectID == "" {
		projectID = bigquery.DetectProjectID
	}

	if infoErr == nil {
		client, err := bigquery.NewClient(ctx, projectID, option.WithCredentialsFile(config.BQKeyPath))
		if err == nil {
			log.Info().Str("project_id", client.Project()).Msg("BigQuery client created from service account file")
			return client, nil
		}
		log.Warn().Err(err).Msg("failed to create BigQuery client with service account file")
	}

	log.Info().Msg("attempting to use Application Default Credentials")
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create BigQuery client with both service account and ADC: %w", err)
	}
	log.Info().Str("project_id", client.Project()).Msg("BigQuery client created from Application Default Credentials")
	return client, nil
}
