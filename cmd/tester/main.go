// Copyright 2024-2025 framehq
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/framehq/frame/pkg/rel"
	"github.com/framehq/frame/pkg/util"
)

func init() {
	cobra.OnInitialize(loadConfig)
	initRewriteCmd()
}

var testerCfg = util.DefaultConfig()

///root cmd

var info = "tester"
var RootCmd = &cobra.Command{
	Use:          "tester",
	Short:        info,
	Long:         info,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("use tester --help or -h")
	},
}

func initDebugOptions() {
	testerCfg.Debug.PrintExpr = viper.GetBool("debug.printExpr")
	testerCfg.Debug.PrintRewrite = viper.GetBool("debug.printRewrite")
	testerCfg.Debug.Verbose = viper.GetBool("debug.verbose")
	if testerCfg.Debug.Verbose {
		util.EnableDebug()
	}
}

//rewrite cmd

var rewriteInfo = "run the rewrite demos"
var rewriteCmd = &cobra.Command{
	Use:   "rewrite",
	Short: rewriteInfo,
	Long:  rewriteInfo,
	RunE: func(cmd *cobra.Command, args []string) error {
		initRewriteCfg()
		return runDemos(testerCfg)
	},
}

func initRewriteCfg() {
	initDebugOptions()
	testerCfg.Rewrite.FuseProjections = viper.GetBool("rewrite.fuseProjections")
	testerCfg.Rewrite.PushdownFilters = viper.GetBool("rewrite.pushdownFilters")
	testerCfg.Rewrite.LiftColumns = viper.GetBool("rewrite.liftColumns")
}

func initRewriteCmd() {
	RootCmd.AddCommand(rewriteCmd)
	rewriteCmd.Flags().BoolVar(&testerCfg.Debug.PrintExpr, "print_expr", true, "print input expressions")
	rewriteCmd.Flags().BoolVar(&testerCfg.Debug.PrintRewrite, "print_rewrite", true, "print rewritten expressions")
	rewriteCmd.Flags().BoolVar(&testerCfg.Debug.Verbose, "verbose", false, "debug logging")

	viper.BindPFlag("debug.printExpr", rewriteCmd.Flags().Lookup("print_expr"))
	viper.BindPFlag("debug.printRewrite", rewriteCmd.Flags().Lookup("print_rewrite"))
	viper.BindPFlag("debug.verbose", rewriteCmd.Flags().Lookup("verbose"))

	viper.SetDefault("rewrite.fuseProjections", true)
	viper.SetDefault("rewrite.pushdownFilters", true)
	viper.SetDefault("rewrite.liftColumns", true)
}

type demo struct {
	name    string
	enabled func(cfg *util.Config) bool
	build   func() (*rel.Expr, error)
}

func always(*util.Config) bool { return true }

func demos() []demo {
	events := rel.NewTable("events", rel.NewSchema(
		rel.Field{Name: "user_id", Typ: rel.DataTypeInteger},
		rel.Field{Name: "amount", Typ: rel.DataTypeInteger},
		rel.Field{Name: "kind", Typ: rel.DataTypeVarchar},
		rel.Field{Name: "at", Typ: rel.DataTypeDate},
	))
	users := rel.NewTable("users", rel.NewSchema(
		rel.Field{Name: "id", Typ: rel.DataTypeInteger},
		rel.Field{Name: "country", Typ: rel.DataTypeVarchar},
	))

	return []demo{
		{
			name: "projection fusion",
			enabled: func(cfg *util.Config) bool {
				return cfg.Rewrite.FuseProjections
			},
			build: func() (*rel.Expr, error) {
				p, err := events.Project(events.Col("user_id"), events.Col("amount"))
				if err != nil {
					return nil, err
				}
				return p.Project(events.Col("user_id"))
			},
		},
		{
			name: "filter pushdown",
			enabled: func(cfg *util.Config) bool {
				return cfg.Rewrite.PushdownFilters && cfg.Rewrite.LiftColumns
			},
			build: func() (*rel.Expr, error) {
				p, err := events.Project(events.Col("user_id"), events.Col("amount"))
				if err != nil {
					return nil, err
				}
				return p.Filter(rel.Equal(events.Col("user_id"), rel.ConstInt(42)))
			},
		},
		{
			name:    "scalar reduction in filter",
			enabled: always,
			build: func() (*rel.Expr, error) {
				return events.Filter(
					rel.Greater(rel.Sum(events.Col("amount")), rel.ConstInt(1000)))
			},
		},
		{
			name:    "grouped aggregate",
			enabled: always,
			build: func() (*rel.Expr, error) {
				return events.Aggregate(
					[]*rel.Expr{rel.Sum(events.Col("amount")).As("total")},
					events.Col("user_id"))
			},
		},
		{
			name:    "join projection",
			enabled: always,
			build: func() (*rel.Expr, error) {
				j, err := events.InnerJoin(users,
					rel.Equal(events.Col("user_id"), users.Col("id")))
				if err != nil {
					return nil, err
				}
				return j.Project(users.Col("country"), events.Col("amount"))
			},
		},
	}
}

func runDemos(cfg *util.Config) error {
	g, _ := errgroup.WithContext(context.Background())
	for _, d := range demos() {
		if !d.enabled(cfg) {
			util.Debug("demo disabled", zap.String("demo", d.name))
			continue
		}
		g.Go(func() (err error) {
			// building against an unknown column panics
			defer func() {
				if v := recover(); v != nil {
					err = util.ConvertPanicError(v)
				}
			}()
			expr, err := d.build()
			if err != nil {
				util.Error("demo failed",
					zap.String("demo", d.name),
					zap.Error(err))
				return err
			}
			util.Info("demo done", zap.String("demo", d.name))
			if cfg.Debug.PrintExpr {
				ctx := &rel.FormatCtx{}
				rel.WriteExpr(ctx, expr)
				fmt.Printf("== %s ==\n%s", d.name, ctx.String())
			}
			if cfg.Debug.PrintRewrite {
				fmt.Println(rel.Explain(expr))
			}
			return nil
		})
	}
	return g.Wait()
}

var defCfgFilePaths = []string{".", "etc"}
var cfgFileName = "tester.toml"

func loadConfig() {
	has := false
	for _, dirPath := range defCfgFilePaths {
		fpath := filepath.Join(dirPath, cfgFileName)
		if util.FileIsValid(fpath) {
			viper.SetConfigFile(fpath)
			err := viper.ReadInConfig()
			if err != nil {
				util.Error("viper load config file failed",
					zap.String("fpath", fpath),
					zap.Error(err))
				continue
			}
			has = true
			break
		}
	}
	if !has {
		util.Warn("tester.toml does not exist, using defaults")
	}
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
