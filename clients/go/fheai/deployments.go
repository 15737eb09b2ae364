package fheai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/novastreamlab/FHE-AI/internal/models"
)

// DeploymentName is the record name of the ledger contract.
const DeploymentName = "FHEAI"

var ErrNoDeployment = errors.New("no deployment found")

// Deployment records where a ledger was deployed.
type Deployment struct {
	Name       string         `json:"name"`
	Network    string         `json:"network"`
	NodeURL    string         `json:"node_url"`
	Address    models.Address `json:"address"`
	Owner      models.Address `json:"owner"`
	TxHash     string         `json:"tx_hash"`
	DeployedAt int64          `json:"deployed_at"`
}

// DeploymentStore persists deployment records per network.
type DeploymentStore interface {
	Save(ctx context.Context, d *Deployment) error
	Load(ctx context.Context, network string) (*Deployment, error)
}

func deploymentKey(network string) string {
	return filepath.ToSlash(filepath.Join(network, DeploymentName+".json"))
}

// LocalDeploymentStore keeps records under dir/<network>/FHEAI.json.
type LocalDeploymentStore struct {
	Dir string
}

func NewLocalDeploymentStore(dir string) *LocalDeploymentStore {
	return &LocalDeploymentStore{Dir: dir}
}

func (s *LocalDeploymentStore) Save(_ context.Context, d *Deployment) error {
	path := filepath.Join(s.Dir, deploymentKey(d.Network))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (s *LocalDeploymentStore) Load(_ context.Context, network string) (*Deployment, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir, deploymentKey(network)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w for network %q", ErrNoDeployment, network)
		}
		return nil, err
	}
	var d Deployment
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// S3ClientAPI defines the S3 operations the store uses.
type S3ClientAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3DeploymentStore keeps records in an S3 bucket, so a team shares one deployment.
type S3DeploymentStore struct {
	Client S3ClientAPI
	Bucket string
	Prefix string
}

// NewS3DeploymentStore uses the default AWS credential chain.
func NewS3DeploymentStore(ctx context.Context, bucket, prefix string) (*S3DeploymentStore, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return &S3DeploymentStore{
		Client: s3.NewFromConfig(cfg),
		Bucket: bucket,
		Prefix: prefix,
	}, nil
}

func (s *S3DeploymentStore) key(network string) string {
	if s.Prefix == "" {
		return deploymentKey(network)
	}
	return s.Prefix + "/" + deploymentKey(network)
}

func (s *S3DeploymentStore) Save(ctx context.Context, d *Deployment) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	_, err = s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(s.key(d.Network)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	return err
}

func (s *S3DeploymentStore) Load(ctx context.Context, network string) (*Deployment, error) {
	resp, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.key(network)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w for network %q", ErrNoDeployment, network)
		}
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var d Deployment
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
