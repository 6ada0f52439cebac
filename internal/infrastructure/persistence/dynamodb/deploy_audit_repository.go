package dynamodb

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dreschagin/session-monitor/internal/application/port"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200

	// Все проверки одного окружения лежат в одной партиции, сортировка по времени
	deployCheckPK = "DEPLOY_CHECK"

	attrPK             = "PK"
	attrSK             = "SK"
	attrID             = "id"
	attrRequester      = "requester"
	attrCanDeploy      = "can_deploy"
	attrActiveSessions = "active_sessions"
	attrThreshold      = "threshold"
	attrCheckedAt      = "checked_at"
	attrExpiresAt      = "expires_at"
)

type Config struct {
	TableName       string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	StrongReads     bool
	// TTL записи; 0 - хранить бессрочно
	TTL time.Duration
}

// DeployAuditRepository реализует port.DeployAuditRepository
type DeployAuditRepository struct {
	client      *dynamodb.Client
	tableName   string
	strongReads bool
	ttl         time.Duration
}

func NewDeployAuditRepository(ctx context.Context, cfg Config) (*DeployAuditRepository, error) {
	if strings.TrimSpace(cfg.TableName) == "" {
		return nil, fmt.Errorf("dynamodb table name is required")
	}

	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "us-east-1"
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	accessKeyID := strings.TrimSpace(cfg.AccessKeyID)
	secretAccessKey := strings.TrimSpace(cfg.SecretAccessKey)
	if accessKeyID != "" || secretAccessKey != "" {
		if accessKeyID == "" || secretAccessKey == "" {
			return nil, fmt.Errorf("both dynamodb access key id and secret access key are required for static credentials")
		}
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID,
			secretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config for dynamodb: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(options *dynamodb.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			options.BaseEndpoint = &endpoint
		}
	})

	return &DeployAuditRepository{
		client:      client,
		tableName:   strings.TrimSpace(cfg.TableName),
		strongReads: cfg.StrongReads,
		ttl:         cfg.TTL,
	}, nil
}

// Save записывает результат проверки
func (r *DeployAuditRepository) Save(ctx context.Context, record port.DeployAuditRecord) error {
	item, err := toItem(record, r.ttl)
	if err != nil {
		return err
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &r.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamodb put item failed: %w", err)
	}

	return nil
}

// ListRecent возвращает последние проверки, новые первыми
func (r *DeployAuditRepository) ListRecent(ctx context.Context, limit int) ([]port.DeployAuditRecord, error) {
	limit = clampLimit(limit)

	keyCondition := "#pk = :pk"
	output, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                &r.tableName,
		KeyConditionExpression:   &keyCondition,
		ExpressionAttributeNames: map[string]string{"#pk": attrPK},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: deployCheckPK},
		},
		Limit:            int32Pointer(int32(limit)),
		ScanIndexForward: boolPointer(false),
		ConsistentRead:   boolPointer(r.strongReads),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb query failed: %w", err)
	}

	records := make([]port.DeployAuditRecord, 0, len(output.Items))
	for _, raw := range output.Items {
		record, err := fromItem(raw)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func toItem(record port.DeployAuditRecord, ttl time.Duration) (map[string]types.AttributeValue, error) {
	id := strings.TrimSpace(record.ID)
	if id == "" {
		return nil, fmt.Errorf("audit record id is required")
	}
	if record.ActiveSessions < 0 || record.Threshold < 0 {
		return nil, fmt.Errorf("audit record counters must not be negative")
	}

	checkedAt := record.CheckedAt.UTC()
	if checkedAt.IsZero() {
		checkedAt = time.Now().UTC()
	}
	checkedAtMS := checkedAt.UnixMilli()

	item := map[string]types.AttributeValue{
		attrPK:             &types.AttributeValueMemberS{Value: deployCheckPK},
		attrSK:             &types.AttributeValueMemberS{Value: buildSK(checkedAtMS, id)},
		attrID:             &types.AttributeValueMemberS{Value: id},
		attrCanDeploy:      &types.AttributeValueMemberBOOL{Value: record.CanDeploy},
		attrActiveSessions: &types.AttributeValueMemberN{Value: strconv.Itoa(record.ActiveSessions)},
		attrThreshold:      &types.AttributeValueMemberN{Value: strconv.Itoa(record.Threshold)},
		attrCheckedAt:      &types.AttributeValueMemberN{Value: strconv.FormatInt(checkedAtMS, 10)},
	}

	if requester := strings.TrimSpace(record.Requester); requester != "" {
		item[attrRequester] = &types.AttributeValueMemberS{Value: requester}
	}
	if ttl > 0 {
		item[attrExpiresAt] = &types.AttributeValueMemberN{Value: strconv.FormatInt(checkedAt.Add(ttl).Unix(), 10)}
	}

	return item, nil
}

func fromItem(item map[string]types.AttributeValue) (port.DeployAuditRecord, error) {
	id, err := attrString(item, attrID)
	if err != nil {
		return port.DeployAuditRecord{}, err
	}
	canDeploy, err := attrBool(item, attrCanDeploy)
	if err != nil {
		return port.DeployAuditRecord{}, err
	}
	activeSessions, err := attrInt64(item, attrActiveSessions)
	if err != nil {
		return port.DeployAuditRecord{}, err
	}
	threshold, err := attrInt64(item, attrThreshold)
	if err != nil {
		return port.DeployAuditRecord{}, err
	}
	checkedAtMS, err := attrInt64(item, attrCheckedAt)
	if err != nil {
		return port.DeployAuditRecord{}, err
	}

	return port.DeployAuditRecord{
		ID:             id,
		Requester:      optionalString(item, attrRequester),
		CanDeploy:      canDeploy,
		ActiveSessions: int(activeSessions),
		Threshold:      int(threshold),
		CheckedAt:      time.UnixMilli(checkedAtMS).UTC(),
	}, nil
}

// buildSK - лексикографический порядок совпадает с хронологическим
func buildSK(checkedAtMS int64, id string) string {
	return fmt.Sprintf("TS#%013d#ID#%s", checkedAtMS, id)
}

func attrString(item map[string]types.AttributeValue, name string) (string, error) {
	raw, ok := item[name]
	if !ok {
		return "", fmt.Errorf("missing attribute %s", name)
	}
	value, ok := raw.(*types.AttributeValueMemberS)
	if !ok || strings.TrimSpace(value.Value) == "" {
		return "", fmt.Errorf("invalid attribute %s", name)
	}
	return value.Value, nil
}

func optionalString(item map[string]types.AttributeValue, name string) string {
	raw, ok := item[name]
	if !ok {
		return ""
	}
	value, ok := raw.(*types.AttributeValueMemberS)
	if !ok {
		return ""
	}
	return value.Value
}

func attrBool(item map[string]types.AttributeValue, name string) (bool, error) {
	raw, ok := item[name]
	if !ok {
		return false, fmt.Errorf("missing attribute %s", name)
	}
	value, ok := raw.(*types.AttributeValueMemberBOOL)
	if !ok {
		return false, fmt.Errorf("invalid attribute %s", name)
	}
	return value.Value, nil
}

func attrInt64(item map[string]types.AttributeValue, name string) (int64, error) {
	raw, ok := item[name]
	if !ok {
		return 0, fmt.Errorf("missing attribute %s", name)
	}
	value, ok := raw.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("invalid attribute %s", name)
	}
	parsed, err := strconv.ParseInt(value.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid attribute %s: %w", name, err)
	}
	return parsed, nil
}

func boolPointer(v bool) *bool {
	return &v
}

func int32Pointer(v int32) *int32 {
	return &v
}
