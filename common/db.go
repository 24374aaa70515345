package common

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"

	g "github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
)

var (
	dialect = g.Dialect("mysql")
)

type QueryArg struct {
	Table  string                  // table
	Fields []interface{}           // query fields
	Ex     []exp.Expression        // where conditions
	Order  []exp.OrderedExpression // order conditions
	Offset uint                    // offset
	Limit  uint                    // limit
}

// EnumFields 按结构体 db tag 枚举列名
func EnumFields(obj interface{}) []interface{} {
	rt := reflect.TypeOf(obj)
	if rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return nil
	}

	var fields []interface{}
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if field := f.Tag.Get("db"); field != "" && field != "-" {
			fields = append(fields, field)
		}
	}

	return fields
}

// InsertCtx：在 sqlx.ExtContext 上执行 INSERT，保持 goqu 生成的占位符与 args
func InsertCtx(ctx context.Context, exec sqlx.ExtContext, table string, rows ...interface{}) (sql.Result, error) {
	query, args, err := dialect.Insert(table).Prepared(true).Rows(rows...).ToSQL()
	if err != nil {
		return nil, err
	}
	return exec.ExecContext(ctx, query, args...)
}

// UpdateCtx：在 sqlx.ExtContext 上执行 UPDATE
func UpdateCtx(ctx context.Context, exec sqlx.ExtContext, table string, record g.Record, ex ...g.Expression) (sql.Result, error) {
	query, args, err := dialect.Update(table).Prepared(true).Set(record).Where(ex...).ToSQL()
	if err != nil {
		return nil, err
	}
	return exec.ExecContext(ctx, query, args...)
}

// DeleteCtx：在 sqlx.ExtContext 上执行 DELETE；Order/Limit 非空时生成 DELETE ... ORDER BY ... LIMIT（MySQL）
func DeleteCtx(ctx context.Context, exec sqlx.ExtContext, args QueryArg) (sql.Result, error) {
	ds := dialect.Delete(args.Table).Prepared(true).Where(args.Ex...)
	if len(args.Order) > 0 {
		ds = ds.Order(args.Order...)
	}
	if args.Limit > 0 {
		ds = ds.Limit(args.Limit)
	}
	query, params, err := ds.ToSQL()
	if err != nil {
		return nil, err
	}
	return exec.ExecContext(ctx, query, params...)
}

// SelectOneExtCtx：在 sqlx.ExtContext 上查询单条记录
func SelectOneExtCtx(ctx context.Context, exec sqlx.QueryerContext, data interface{}, table string, fields []interface{}, ex ...exp.Expression) error {
	query, args, err := dialect.Select(fields...).Prepared(true).From(table).Where(ex...).Limit(1).ToSQL()
	if err != nil {
		return err
	}
	return sqlx.GetContext(ctx, exec, data, query, args...)
}

// SelectOneTxCtx：在事务中查询单条记录，可选 FOR UPDATE
func SelectOneTxCtx(ctx context.Context, tx *sqlx.Tx, data interface{}, table string, fields []interface{}, ex exp.Expression, forUpdate bool) error {
	ds := dialect.Select(fields...).Prepared(true).From(table).Where(ex).Limit(1)
	if forUpdate {
		ds = ds.ForUpdate(exp.Wait)
	}
	query, args, err := ds.ToSQL()
	if err != nil {
		return err
	}
	return tx.GetContext(ctx, data, query, args...)
}

// SelectAllCtx：查询多条记录
func SelectAllCtx(ctx context.Context, q sqlx.QueryerContext, data interface{}, args QueryArg) error {
	if args.Table == "" {
		return fmt.Errorf("invalid table")
	}
	if len(args.Fields) == 0 {
		return fmt.Errorf("invalid fields")
	}
	ds := dialect.Select(args.Fields...).Prepared(true).From(args.Table)
	if len(args.Ex) > 0 {
		ds = ds.Where(args.Ex...)
	}
	if len(args.Order) > 0 {
		ds = ds.Order(args.Order...)
	}
	if args.Offset > 0 {
		ds = ds.Offset(args.Offset)
	}
	if args.Limit > 0 {
		ds = ds.Limit(args.Limit)
	}
	query, qargs, err := ds.ToSQL()
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, q, data, query, qargs...)
}

// CountCtx 计数
func CountCtx(ctx context.Context, q sqlx.QueryerContext, table string, ex ...exp.Expression) (int64, error) {
	var count int64
	query, args, err := dialect.Select(g.COUNT("*")).Prepared(true).From(table).Where(ex...).ToSQL()
	if err != nil {
		return 0, err
	}
	err = sqlx.GetContext(ctx, q, &count, query, args...)
	return count, err
}
