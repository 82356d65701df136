package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"nodegraph/application/ports"
	"nodegraph/domain/core/entities"
	"nodegraph/domain/core/valueobjects"
	pkgerrors "nodegraph/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const (
	entityTypeNode = "NODE"
	metadataSK     = "METADATA"

	// DynamoDB request limits
	batchGetLimit   = 100
	batchWriteLimit = 25
	maxBatchPasses  = 5

	// timestampLayout keeps every fraction digit so string order is time order
	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

var _ ports.NodeStore = (*NodeRepository)(nil)

// API is the subset of the DynamoDB client used by the repositories
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// NodeRepository stores nodes as single items in one DynamoDB table.
// Child references are kept inline as a list of ids.
type NodeRepository struct {
	client    API
	tableName string
	logger    *zap.Logger
}

// NewNodeRepository creates a new DynamoDB node repository
func NewNodeRepository(client API, tableName string, logger *zap.Logger) *NodeRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NodeRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// nodeItem represents the DynamoDB item structure for a node
type nodeItem struct {
	PK          string   `dynamodbav:"PK"`
	SK          string   `dynamodbav:"SK"`
	EntityType  string   `dynamodbav:"EntityType"`
	NodeID      string   `dynamodbav:"NodeID"`
	Name        string   `dynamodbav:"Name"`
	Type        string   `dynamodbav:"Type"`
	Description string   `dynamodbav:"Description"`
	Children    []string `dynamodbav:"Children"`
	CreatedAt   string   `dynamodbav:"CreatedAt"`
	UpdatedAt   string   `dynamodbav:"UpdatedAt"`
}

func nodePK(id string) string {
	return fmt.Sprintf("NODE#%s", id)
}

func nodeKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: nodePK(id)},
		"SK": &types.AttributeValueMemberS{Value: metadataSK},
	}
}

func toItem(node *entities.Node, now time.Time) nodeItem {
	return nodeItem{
		PK:          nodePK(node.ID().String()),
		SK:          metadataSK,
		EntityType:  entityTypeNode,
		NodeID:      node.ID().String(),
		Name:        node.Name(),
		Type:        node.Type(),
		Description: node.Description(),
		Children:    valueobjects.NodeIDStrings(node.Children()),
		CreatedAt:   formatTimestamp(now),
		UpdatedAt:   formatTimestamp(now),
	}
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// createdAt parses the stored creation time. RFC3339Nano also reads the
// fixed-width layout and items written with trimmed fractions.
func (item nodeItem) createdAt() time.Time {
	t, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (item nodeItem) toEntity() (*entities.Node, error) {
	id, err := valueobjects.NewNodeIDFromString(item.NodeID)
	if err != nil {
		return nil, fmt.Errorf("invalid node id %q: %w", item.NodeID, err)
	}
	children, err := valueobjects.NodeIDsFromStrings(item.Children)
	if err != nil {
		return nil, fmt.Errorf("invalid child id on node %s: %w", item.NodeID, err)
	}
	fields := valueobjects.ReconstructNodeFields(item.Name, item.Type, item.Description)
	return entities.ReconstructNode(id, fields, children), nil
}

func isConditionFailure(err error) bool {
	var conditionalCheckFailed *types.ConditionalCheckFailedException
	return errors.As(err, &conditionalCheckFailed)
}

// Create saves a new node under a fresh id
func (r *NodeRepository) Create(ctx context.Context, fields valueobjects.NodeFields, children []valueobjects.NodeID) (*entities.Node, error) {
	node := entities.ReconstructNode(valueobjects.NewNodeID(), fields, children)

	av, err := attributevalue.MarshalMap(toItem(node, time.Now()))
	if err != nil {
		return nil, pkgerrors.NewStoreError("marshal node", err)
	}

	cond := expression.AttributeNotExists(expression.Name("PK"))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return nil, pkgerrors.NewStoreError("build expression", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     av,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		r.logger.Error("Failed to save node to DynamoDB",
			zap.Error(err),
			zap.String("nodeID", node.ID().String()),
		)
		return nil, pkgerrors.NewStoreError("put item", err)
	}

	return node, nil
}

// Update replaces the fields and children of an existing node
func (r *NodeRepository) Update(ctx context.Context, node *entities.Node) error {
	update := expression.
		Set(expression.Name("Name"), expression.Value(node.Name())).
		Set(expression.Name("Type"), expression.Value(node.Type())).
		Set(expression.Name("Description"), expression.Value(node.Description())).
		Set(expression.Name("Children"), expression.Value(valueobjects.NodeIDStrings(node.Children()))).
		Set(expression.Name("UpdatedAt"), expression.Value(formatTimestamp(time.Now())))
	cond := expression.AttributeExists(expression.Name("PK"))

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return pkgerrors.NewStoreError("build expression", err)
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       nodeKey(node.ID().String()),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		if isConditionFailure(err) {
			return pkgerrors.NewNotFoundError("node")
		}
		return pkgerrors.NewStoreError("update item", err)
	}
	return nil
}

// FindByID retrieves a node by id
func (r *NodeRepository) FindByID(ctx context.Context, id valueobjects.NodeID) (*entities.Node, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            nodeKey(id.String()),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, pkgerrors.NewStoreError("get item", err)
	}
	if result.Item == nil {
		return nil, pkgerrors.NewNotFoundError("node")
	}

	var item nodeItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, pkgerrors.NewStoreError("unmarshal node", err)
	}
	node, err := item.toEntity()
	if err != nil {
		return nil, pkgerrors.NewStoreError("decode node", err)
	}
	return node, nil
}

// FindByIDs retrieves the existing nodes among ids in the order of ids.
// Keys are de-duplicated and fetched in batches of 100.
func (r *NodeRepository) FindByIDs(ctx context.Context, ids []valueobjects.NodeID) ([]*entities.Node, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id.String()] {
			seen[id.String()] = true
			unique = append(unique, id.String())
		}
	}

	found := make(map[string]*entities.Node, len(unique))
	for start := 0; start < len(unique); start += batchGetLimit {
		end := start + batchGetLimit
		if end > len(unique) {
			end = len(unique)
		}
		if err := r.batchGet(ctx, unique[start:end], found); err != nil {
			return nil, err
		}
	}

	result := make([]*entities.Node, 0, len(ids))
	for _, id := range ids {
		if node, ok := found[id.String()]; ok {
			result = append(result, node)
		}
	}
	return result, nil
}

func (r *NodeRepository) batchGet(ctx context.Context, ids []string, found map[string]*entities.Node) error {
	keys := make([]map[string]types.AttributeValue, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, nodeKey(id))
	}

	request := map[string]types.KeysAndAttributes{
		r.tableName: {Keys: keys, ConsistentRead: aws.Bool(true)},
	}

	for pass := 0; len(request) > 0; pass++ {
		if pass >= maxBatchPasses {
			return pkgerrors.NewStoreError("batch get item", errors.New("unprocessed keys remain after repeated passes"))
		}

		result, err := r.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: request})
		if err != nil {
			return pkgerrors.NewStoreError("batch get item", err)
		}

		for _, av := range result.Responses[r.tableName] {
			var item nodeItem
			if err := attributevalue.UnmarshalMap(av, &item); err != nil {
				return pkgerrors.NewStoreError("unmarshal node", err)
			}
			node, err := item.toEntity()
			if err != nil {
				r.logger.Warn("Skipping undecodable node item", zap.String("nodeID", item.NodeID), zap.Error(err))
				continue
			}
			found[item.NodeID] = node
		}

		request = result.UnprocessedKeys
	}
	return nil
}

// FindByName retrieves nodes with an exact name match
func (r *NodeRepository) FindByName(ctx context.Context, name string) ([]*entities.Node, error) {
	cond := expression.Name("Name").Equal(expression.Value(name))
	return r.scan(ctx, "scan by name", &cond)
}

// FindByType retrieves nodes with an exact type match
func (r *NodeRepository) FindByType(ctx context.Context, nodeType string) ([]*entities.Node, error) {
	cond := expression.Name("Type").Equal(expression.Value(nodeType))
	return r.scan(ctx, "scan by type", &cond)
}

// List retrieves all nodes ordered by creation time
func (r *NodeRepository) List(ctx context.Context) ([]*entities.Node, error) {
	return r.scan(ctx, "scan", nil)
}

// scan reads every node item matching extra. A nil extra matches all nodes.
func (r *NodeRepository) scan(ctx context.Context, operation string, extra *expression.ConditionBuilder) ([]*entities.Node, error) {
	items, err := r.scanItems(ctx, extra)
	if err != nil {
		return nil, pkgerrors.NewStoreError(operation, err)
	}

	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := items[i].createdAt(), items[j].createdAt()
		if ti.Equal(tj) {
			return items[i].NodeID < items[j].NodeID
		}
		return ti.Before(tj)
	})

	nodes := make([]*entities.Node, 0, len(items))
	for _, item := range items {
		node, err := item.toEntity()
		if err != nil {
			r.logger.Warn("Skipping undecodable node item", zap.String("nodeID", item.NodeID), zap.Error(err))
			continue
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (r *NodeRepository) scanItems(ctx context.Context, extra *expression.ConditionBuilder) ([]nodeItem, error) {
	filter := expression.Name("EntityType").Equal(expression.Value(entityTypeNode))
	if extra != nil {
		filter = filter.And(*extra)
	}

	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build filter: %w", err)
	}

	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(true),
	})

	items := make([]nodeItem, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var pageItems []nodeItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &pageItems); err != nil {
			return nil, fmt.Errorf("failed to unmarshal nodes: %w", err)
		}
		items = append(items, pageItems...)
	}
	return items, nil
}

// DeleteByID removes a node
func (r *NodeRepository) DeleteByID(ctx context.Context, id valueobjects.NodeID) error {
	cond := expression.AttributeExists(expression.Name("PK"))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return pkgerrors.NewStoreError("build expression", err)
	}

	_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      nodeKey(id.String()),
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		if isConditionFailure(err) {
			return pkgerrors.NewNotFoundError("node")
		}
		return pkgerrors.NewStoreError("delete item", err)
	}
	return nil
}

// AppendChildren appends child ids to a parent in a single conditional update
func (r *NodeRepository) AppendChildren(ctx context.Context, parentID valueobjects.NodeID, childIDs []valueobjects.NodeID) error {
	if len(childIDs) == 0 {
		_, err := r.FindByID(ctx, parentID)
		return err
	}

	children := expression.Name("Children")
	update := expression.
		Set(children, expression.ListAppend(
			expression.IfNotExists(children, expression.Value([]string{})),
			expression.Value(valueobjects.NodeIDStrings(childIDs)),
		)).
		Set(expression.Name("UpdatedAt"), expression.Value(formatTimestamp(time.Now())))
	cond := expression.AttributeExists(expression.Name("PK"))

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return pkgerrors.NewStoreError("build expression", err)
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       nodeKey(parentID.String()),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		if isConditionFailure(err) {
			return pkgerrors.NewNotFoundError("node")
		}
		return pkgerrors.NewStoreError("append children", err)
	}
	return nil
}

// DeleteAll removes every node item. Other items in the table are kept.
func (r *NodeRepository) DeleteAll(ctx context.Context) (int, error) {
	items, err := r.scanItems(ctx, nil)
	if err != nil {
		return 0, pkgerrors.NewStoreError("scan", err)
	}

	for start := 0; start < len(items); start += batchWriteLimit {
		end := start + batchWriteLimit
		if end > len(items) {
			end = len(items)
		}

		requests := make([]types.WriteRequest, 0, end-start)
		for _, item := range items[start:end] {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: nodeKey(item.NodeID)},
			})
		}
		if err := r.batchWrite(ctx, requests); err != nil {
			return start, err
		}
	}

	r.logger.Info("Deleted all nodes", zap.Int("count", len(items)))
	return len(items), nil
}

func (r *NodeRepository) batchWrite(ctx context.Context, requests []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{r.tableName: requests}

	for pass := 0; len(pending[r.tableName]) > 0; pass++ {
		if pass >= maxBatchPasses {
			return pkgerrors.NewStoreError("batch write item", errors.New("unprocessed items remain after repeated passes"))
		}

		result, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return pkgerrors.NewStoreError("batch write item", err)
		}
		pending = result.UnprocessedItems
	}
	return nil
}

// Ping checks that the table is reachable
func (r *NodeRepository) Ping(ctx context.Context) error {
	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(r.tableName),
	})
	if err != nil {
		return pkgerrors.NewStoreError("describe table", err)
	}
	return nil
}
