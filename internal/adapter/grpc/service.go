package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "budgetline.v1.BudgetLineService"

// BudgetLineServiceServer is the server API for BudgetLineService.
// Every RPC takes and returns a JSON-shaped google.protobuf.Struct.
type BudgetLineServiceServer interface {
	CreateMajorBudgetLine(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetMajorBudgetLine(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListMajorBudgetLines(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateMajorBudgetLine(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteMajorBudgetLine(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RestoreMajorBudgetLine(context.Context, *structpb.Struct) (*structpb.Struct, error)

	CreateBudgetLineName(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetBudgetLineName(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListBudgetLineNames(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateBudgetLineName(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteBudgetLineName(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RestoreBudgetLineName(context.Context, *structpb.Struct) (*structpb.Struct, error)

	CreateBudgetLineOf(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateBudgetLineOfWithBreakdowns(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetBudgetLineOf(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListBudgetLineOfs(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateBudgetLineOf(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteBudgetLineOf(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RestoreBudgetLineOf(context.Context, *structpb.Struct) (*structpb.Struct, error)

	CreateBreakdown(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetBreakdown(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListBreakdowns(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateBreakdown(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteBreakdown(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RestoreBreakdown(context.Context, *structpb.Struct) (*structpb.Struct, error)

	CreateDerogation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetDerogation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListDerogations(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateDerogation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteDerogation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RestoreDerogation(context.Context, *structpb.Struct) (*structpb.Struct, error)

	AnalyseMajorBudgetLines(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportAnalysis(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type rpc func(BudgetLineServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call rpc) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			server := srv.(BudgetLineServiceServer)
			if interceptor == nil {
				return call(server, ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(server, ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes BudgetLineService for grpc.ServiceRegistrar
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BudgetLineServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateMajorBudgetLine", BudgetLineServiceServer.CreateMajorBudgetLine),
		unary("GetMajorBudgetLine", BudgetLineServiceServer.GetMajorBudgetLine),
		unary("ListMajorBudgetLines", BudgetLineServiceServer.ListMajorBudgetLines),
		unary("UpdateMajorBudgetLine", BudgetLineServiceServer.UpdateMajorBudgetLine),
		unary("DeleteMajorBudgetLine", BudgetLineServiceServer.DeleteMajorBudgetLine),
		unary("RestoreMajorBudgetLine", BudgetLineServiceServer.RestoreMajorBudgetLine),

		unary("CreateBudgetLineName", BudgetLineServiceServer.CreateBudgetLineName),
		unary("GetBudgetLineName", BudgetLineServiceServer.GetBudgetLineName),
		unary("ListBudgetLineNames", BudgetLineServiceServer.ListBudgetLineNames),
		unary("UpdateBudgetLineName", BudgetLineServiceServer.UpdateBudgetLineName),
		unary("DeleteBudgetLineName", BudgetLineServiceServer.DeleteBudgetLineName),
		unary("RestoreBudgetLineName", BudgetLineServiceServer.RestoreBudgetLineName),

		unary("CreateBudgetLineOf", BudgetLineServiceServer.CreateBudgetLineOf),
		unary("CreateBudgetLineOfWithBreakdowns", BudgetLineServiceServer.CreateBudgetLineOfWithBreakdowns),
		unary("GetBudgetLineOf", BudgetLineServiceServer.GetBudgetLineOf),
		unary("ListBudgetLineOfs", BudgetLineServiceServer.ListBudgetLineOfs),
		unary("UpdateBudgetLineOf", BudgetLineServiceServer.UpdateBudgetLineOf),
		unary("DeleteBudgetLineOf", BudgetLineServiceServer.DeleteBudgetLineOf),
		unary("RestoreBudgetLineOf", BudgetLineServiceServer.RestoreBudgetLineOf),

		unary("CreateBreakdown", BudgetLineServiceServer.CreateBreakdown),
		unary("GetBreakdown", BudgetLineServiceServer.GetBreakdown),
		unary("ListBreakdowns", BudgetLineServiceServer.ListBreakdowns),
		unary("UpdateBreakdown", BudgetLineServiceServer.UpdateBreakdown),
		unary("DeleteBreakdown", BudgetLineServiceServer.DeleteBreakdown),
		unary("RestoreBreakdown", BudgetLineServiceServer.RestoreBreakdown),

		unary("CreateDerogation", BudgetLineServiceServer.CreateDerogation),
		unary("GetDerogation", BudgetLineServiceServer.GetDerogation),
		unary("ListDerogations", BudgetLineServiceServer.ListDerogations),
		unary("UpdateDerogation", BudgetLineServiceServer.UpdateDerogation),
		unary("DeleteDerogation", BudgetLineServiceServer.DeleteDerogation),
		unary("RestoreDerogation", BudgetLineServiceServer.RestoreDerogation),

		unary("AnalyseMajorBudgetLines", BudgetLineServiceServer.AnalyseMajorBudgetLines),
		unary("ExportAnalysis", BudgetLineServiceServer.ExportAnalysis),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "budgetline/v1/budgetline.proto",
}

// RegisterBudgetLineServiceServer registers srv on s
func RegisterBudgetLineServiceServer(s grpc.ServiceRegistrar, srv BudgetLineServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}
