// Copyright 2022 Sogang University
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package communicator

import (
	"context"

	"github.com/golang/protobuf/ptypes/empty"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	Communicator_Init_FullMethodName     = "/detfeed.Communicator/Init"
	Communicator_Bcast_FullMethodName    = "/detfeed.Communicator/Bcast"
	Communicator_Len_FullMethodName      = "/detfeed.Communicator/Len"
	Communicator_Finalize_FullMethodName = "/detfeed.Communicator/Finalize"
)

// CommunicatorClient is the client API for Communicator service.
type CommunicatorClient interface {
	Init(ctx context.Context, in *InitRequest, opts ...grpc.CallOption) (*InitResponse, error)
	Bcast(ctx context.Context, in *BcastRequest, opts ...grpc.CallOption) (*BcastResponse, error)
	Len(ctx context.Context, in *JobRequest, opts ...grpc.CallOption) (*LenResponse, error)
	Finalize(ctx context.Context, in *JobRequest, opts ...grpc.CallOption) (*empty.Empty, error)
}

type communicatorClient struct {
	cc grpc.ClientConnInterface
}

// NewCommunicatorClient creates a new client over the given connection.
func NewCommunicatorClient(cc grpc.ClientConnInterface) CommunicatorClient {
	return &communicatorClient{cc}
}

func (c *communicatorClient) Init(ctx context.Context, in *InitRequest, opts ...grpc.CallOption) (*InitResponse, error) {
	out := new(InitResponse)
	if err := c.cc.Invoke(ctx, Communicator_Init_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *communicatorClient) Bcast(ctx context.Context, in *BcastRequest, opts ...grpc.CallOption) (*BcastResponse, error) {
	out := new(BcastResponse)
	if err := c.cc.Invoke(ctx, Communicator_Bcast_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *communicatorClient) Len(ctx context.Context, in *JobRequest, opts ...grpc.CallOption) (*LenResponse, error) {
	out := new(LenResponse)
	if err := c.cc.Invoke(ctx, Communicator_Len_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *communicatorClient) Finalize(ctx context.Context, in *JobRequest, opts ...grpc.CallOption) (*empty.Empty, error) {
	out := new(empty.Empty)
	if err := c.cc.Invoke(ctx, Communicator_Finalize_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// CommunicatorServer is the server API for Communicator service.
// All implementations must embed UnimplementedCommunicatorServer
// for forward compatibility.
type CommunicatorServer interface {
	Init(context.Context, *InitRequest) (*InitResponse, error)
	Bcast(context.Context, *BcastRequest) (*BcastResponse, error)
	Len(context.Context, *JobRequest) (*LenResponse, error)
	Finalize(context.Context, *JobRequest) (*empty.Empty, error)
	mustEmbedUnimplementedCommunicatorServer()
}

// UnimplementedCommunicatorServer must be embedded to have forward compatible implementations.
type UnimplementedCommunicatorServer struct {
}

func (UnimplementedCommunicatorServer) Init(context.Context, *InitRequest) (*InitResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Init not implemented")
}
func (UnimplementedCommunicatorServer) Bcast(context.Context, *BcastRequest) (*BcastResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Bcast not implemented")
}
func (UnimplementedCommunicatorServer) Len(context.Context, *JobRequest) (*LenResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Len not implemented")
}
func (UnimplementedCommunicatorServer) Finalize(context.Context, *JobRequest) (*empty.Empty, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Finalize not implemented")
}
func (UnimplementedCommunicatorServer) mustEmbedUnimplementedCommunicatorServer() {}

// RegisterCommunicatorServer registers the given implementation on the server.
func RegisterCommunicatorServer(s grpc.ServiceRegistrar, srv CommunicatorServer) {
	s.RegisterService(&Communicator_ServiceDesc, srv)
}

func _Communicator_Init_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(InitRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CommunicatorServer).Init(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Communicator_Init_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CommunicatorServer).Init(ctx, req.(*InitRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Communicator_Bcast_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(BcastRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CommunicatorServer).Bcast(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Communicator_Bcast_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CommunicatorServer).Bcast(ctx, req.(*BcastRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Communicator_Len_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(JobRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CommunicatorServer).Len(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Communicator_Len_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CommunicatorServer).Len(ctx, req.(*JobRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Communicator_Finalize_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(JobRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CommunicatorServer).Finalize(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Communicator_Finalize_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CommunicatorServer).Finalize(ctx, req.(*JobRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Communicator_ServiceDesc is the grpc.ServiceDesc for Communicator service.
var Communicator_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "detfeed.Communicator",
	HandlerType: (*CommunicatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Init",
			Handler:    _Communicator_Init_Handler,
		},
		{
			MethodName: "Bcast",
			Handler:    _Communicator_Bcast_Handler,
		},
		{
			MethodName: "Len",
			Handler:    _Communicator_Len_Handler,
		},
		{
			MethodName: "Finalize",
			Handler:    _Communicator_Finalize_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "communicator.proto",
}
