package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	sdkerrors "memu-sdk/pkg/errors"
)

const version = "0.1.0"

// errUsage 参数错误，用法已打印
var errUsage = errors.New("usage error")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run 执行一条子命令并返回退出码
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stdout)
		return 0
	}
	cmd, rest := args[0], args[1:]

	var err error
	switch cmd {
	case "version":
		fmt.Fprintln(stdout, "memu cli "+version)
		return 0
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	case "config":
		err = runConfig(ctx, rest, stdout, stderr)
	case "memorize":
		err = runMemorize(ctx, rest, stdout, stderr)
	case "status":
		err = runStatus(ctx, rest, stdout, stderr)
	case "wait":
		err = runWait(ctx, rest, stdout, stderr)
	case "categories":
		err = runCategories(ctx, rest, stdout, stderr)
	case "search":
		err = runSearch(ctx, rest, stdout, stderr)
	case "clusters":
		err = runClusters(ctx, rest, stdout, stderr)
	default:
		printUsage(stderr)
		return 1
	}
	if err != nil {
		report(stderr, err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: memu <command> [flags] [args]")
	fmt.Fprintln(w, "  version                     - 显示版本")
	fmt.Fprintln(w, "  config                      - 显示解析后的连接配置（API Key 脱敏）")
	fmt.Fprintln(w, "  memorize --user --user-name --agent --agent-name (--text | --file turns.json)")
	fmt.Fprintln(w, "                              - 提交对话做记忆化，输出 taskId")
	fmt.Fprintln(w, "  status <task_id>            - 查询一次任务状态")
	fmt.Fprintln(w, "  wait [--interval] [--timeout] <task_id>")
	fmt.Fprintln(w, "                              - 轮询直到任务进入终态")
	fmt.Fprintln(w, "  categories --user [--agent] [--include-inactive]")
	fmt.Fprintln(w, "                              - 默认分类及其记忆")
	fmt.Fprintln(w, "  search --user --query [--agent] [--top-k] [--min-similarity] [--categories a,b]")
	fmt.Fprintln(w, "                              - 语义检索相关记忆")
	fmt.Fprintln(w, "  clusters --user --query [--agent] [--top-k] [--min-similarity]")
	fmt.Fprintln(w, "                              - 语义检索相关聚类分类")
	fmt.Fprintln(w, "公共参数: --config <path>  --log-level <level>  --metrics")
	fmt.Fprintln(w, "环境变量: MEMU_BASE_URL MEMU_API_KEY MEMU_TIMEOUT MEMU_MAX_RETRIES MEMU_CONFIG")
}

// report 按错误种类输出，422 附带服务端 detail
func report(w io.Writer, err error) {
	if sdkerrors.Is(err, errUsage) {
		return
	}
	kind := sdkerrors.KindOf(err)
	if kind == 0 {
		fmt.Fprintf(w, "错误: %v\n", err)
		return
	}
	fmt.Fprintf(w, "错误 [%s]: %v\n", kind, err)
	var e *sdkerrors.Error
	if sdkerrors.As(err, &e) && e.Detail != nil {
		fmt.Fprintln(w, "detail:")
		_ = writeJSON(w, e.Detail)
	}
}
