package dynamodb

import (
	"context"
	"fmt"
	"os"
	"time"

	pkgerrors "nodegraph/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const entityTypeLock = "LOCK"

// DistributedLock provides locking using DynamoDB conditional writes.
// Lock items live in the node table under LOCK#<resource>.
type DistributedLock struct {
	client    API
	tableName string
	owner     string
	logger    *zap.Logger
}

// lockRecord represents a lock record in DynamoDB
type lockRecord struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	LockID     string `dynamodbav:"LockID"`
	Owner      string `dynamodbav:"Owner"`
	AcquiredAt string `dynamodbav:"AcquiredAt"`
	ExpiresAt  string `dynamodbav:"ExpiresAt"`
	TTL        int64  `dynamodbav:"TTL"` // Unix timestamp for DynamoDB TTL
}

// NewDistributedLock creates a lock client. The owner defaults to the host name.
func NewDistributedLock(client API, tableName string, logger *zap.Logger) *DistributedLock {
	owner, err := os.Hostname()
	if err != nil || owner == "" {
		owner = "nodegraph"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DistributedLock{
		client:    client,
		tableName: tableName,
		owner:     owner,
		logger:    logger,
	}
}

func lockKey(resource string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("LOCK#%s", resource)},
		"SK": &types.AttributeValueMemberS{Value: "LOCK"},
	}
}

// Acquire takes the lock for resource or fails with a CONFLICT error when a
// live lock is held. An expired lock is taken over.
func (dl *DistributedLock) Acquire(ctx context.Context, resource string, ttl time.Duration) (func(context.Context) error, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)
	lockID := fmt.Sprintf("%s_%d", dl.owner, now.UnixNano())

	item, err := attributevalue.MarshalMap(lockRecord{
		PK:         fmt.Sprintf("LOCK#%s", resource),
		SK:         "LOCK",
		EntityType: entityTypeLock,
		LockID:     lockID,
		Owner:      dl.owner,
		AcquiredAt: now.Format(time.RFC3339),
		ExpiresAt:  expiresAt.Format(time.RFC3339),
		TTL:        expiresAt.Unix(),
	})
	if err != nil {
		return nil, pkgerrors.NewStoreError("marshal lock", err)
	}

	cond := expression.AttributeNotExists(expression.Name("PK")).
		Or(expression.Name("ExpiresAt").LessThan(expression.Value(now.Format(time.RFC3339))))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return nil, pkgerrors.NewStoreError("build expression", err)
	}

	_, err = dl.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(dl.tableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		if isConditionFailure(err) {
			dl.logger.Debug("Failed to acquire lock - already held",
				zap.String("resource", resource),
				zap.String("owner", dl.owner),
			)
			return nil, pkgerrors.NewConflictError(fmt.Sprintf("another %s is running", resource)).
				WithCode(pkgerrors.CodeLockHeld)
		}
		return nil, pkgerrors.NewStoreError("acquire lock", err)
	}

	dl.logger.Debug("Lock acquired",
		zap.String("resource", resource),
		zap.String("lockID", lockID),
		zap.Duration("ttl", ttl),
	)

	return func(ctx context.Context) error {
		return dl.release(ctx, resource, lockID)
	}, nil
}

// release deletes the lock item if it is still ours
func (dl *DistributedLock) release(ctx context.Context, resource, lockID string) error {
	cond := expression.Name("LockID").Equal(expression.Value(lockID))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return pkgerrors.NewStoreError("build expression", err)
	}

	_, err = dl.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(dl.tableName),
		Key:                       lockKey(resource),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		if isConditionFailure(err) {
			dl.logger.Warn("Lock already released or taken over",
				zap.String("resource", resource),
				zap.String("lockID", lockID),
			)
			return nil
		}
		return pkgerrors.NewStoreError("release lock", err)
	}

	dl.logger.Debug("Lock released", zap.String("resource", resource), zap.String("lockID", lockID))
	return nil
}
